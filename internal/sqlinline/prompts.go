package sqlinline

const QSelectPromptTemplate = `--sql 1fbd9822-d837-4733-8b03-1e58da821690
select key, template, coalesce(model_id, '')
from prompt_templates
where key = $1::text and active
order by updated_at desc
limit 1;
`

const QInsertCallLog = `--sql 77f27a97-53ff-444e-beca-184cab1f5182
insert into ai_call_logs (id, caller_id, model_id, feature, success, error, created_at)
values (gen_random_uuid(), $1::text, $2::text, $3::text, $4::boolean, nullif($5::text, ''), now());
`
