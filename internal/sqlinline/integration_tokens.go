package sqlinline

// QSelectIntegrationToken returns the stored key of a provider. Blank rows
// read as missing so credentials fall through to the configured key.
const QSelectIntegrationToken = `--sql dd700a95-2b5a-4cfa-a02f-126ba056c917
select token
from integration_tokens
where provider = $1::text
  and length(trim(token)) > 0
limit 1;
`

// QUpsertIntegrationToken stores one key per provider; properties are merged
// so earlier metadata survives a key rotation.
const QUpsertIntegrationToken = `--sql a5c46f23-0b39-4342-8478-61f58cdda8a8
insert into integration_tokens (id, provider, token, properties)
values (gen_random_uuid(), $1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb))
on conflict (provider) do update set
    token = excluded.token,
    properties = integration_tokens.properties || excluded.properties,
    updated_at = now();
`
