package sqlinline

const QSelectProgress = `--sql 97eaa31d-a101-4fa8-89c5-32f735555f39
select payload
from generation_progress
where owner_id = $1::text
limit 1;
`

const QUpsertProgress = `--sql ddfd0aed-22dc-40e6-ad3c-0b5029110196
insert into generation_progress (owner_id, run_id, phase, payload, updated_at)
values ($1::text, $2::text, $3::text, $4::jsonb, now())
on conflict (owner_id) do update set
    run_id = excluded.run_id,
    phase = excluded.phase,
    payload = excluded.payload,
    updated_at = now();
`

const QDeleteProgress = `--sql fe46d521-56c9-438d-a64d-9a75d0614afd
delete from generation_progress
where owner_id = $1::text;
`
