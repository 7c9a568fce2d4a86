package sqlinline

// QEnsureSchema creates the tables used by the adapters when missing.
const QEnsureSchema = `--sql 20cc8353-8423-479c-9ce2-c84d94b8d3a6
create table if not exists integration_tokens (
    id uuid primary key,
    provider text not null unique,
    token text not null,
    properties jsonb not null default '{}'::jsonb,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);
create table if not exists generation_progress (
    owner_id text primary key,
    run_id text not null,
    phase text not null,
    payload jsonb not null,
    updated_at timestamptz not null default now()
);
create table if not exists projects (
    id uuid primary key,
    owner_id text not null,
    run_id text not null,
    name text not null,
    template_id text not null,
    locale text not null,
    document jsonb not null,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);
create table if not exists store_categories (
    id uuid primary key,
    project_id uuid not null references projects(id) on delete cascade,
    position int not null,
    name text not null,
    description text not null default '',
    created_at timestamptz not null default now(),
    unique (project_id, name)
);
create table if not exists site_templates (
    id text primary key,
    name text not null,
    industry text not null default '',
    theme text not null default '',
    schema_version text not null default '1.0.0',
    sections jsonb not null default '[]'::jsonb,
    data jsonb not null default '{}'::jsonb,
    active boolean not null default true
);
create table if not exists prompt_templates (
    key text primary key,
    template text not null,
    model_id text,
    active boolean not null default true,
    updated_at timestamptz not null default now()
);
create table if not exists ai_call_logs (
    id uuid primary key,
    caller_id text not null,
    model_id text not null,
    feature text not null,
    success boolean not null,
    error text,
    created_at timestamptz not null default now()
);
`
