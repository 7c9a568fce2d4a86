package sqlinline

const QInsertProject = `--sql baad14e3-c190-4056-be33-95ba657c6c92
insert into projects (id, owner_id, run_id, name, template_id, locale, document, created_at, updated_at)
values (gen_random_uuid(), $1::text, $2::text, $3::text, $4::text, $5::text, $6::jsonb, now(), now())
returning id::text;
`

const QInsertStoreCategory = `--sql df653641-d529-494c-858b-da287e940ba6
insert into store_categories (id, project_id, position, name, description, created_at)
values (gen_random_uuid(), $1::uuid, $2::int, $3::text, $4::text, now())
on conflict (project_id, name) do nothing;
`
