package sqlinline

const QSelectTemplate = `--sql 4583a78f-efac-4720-bf12-64d0a5017e85
select id, name, industry, theme, schema_version, sections, data
from site_templates
where id = $1::text and active
limit 1;
`

const QListTemplates = `--sql cf87bd6d-65dc-42be-a792-828209d93dac
select id, name, industry, sections
from site_templates
where active
order by name asc;
`

// QSeedTemplate inserts a built-in template, leaving edited rows untouched.
const QSeedTemplate = `--sql 6edb3a85-f5b6-415a-8ebc-8c70b4b76032
insert into site_templates (id, name, industry, theme, schema_version, sections, data)
values ($1::text, $2::text, $3::text, $4::text, $5::text, $6::jsonb, $7::jsonb)
on conflict (id) do nothing;
`
