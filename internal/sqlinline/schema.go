package sqlinline

const QCreateGenerationRuns = `--sql 5d0b7e31-8c2f-4a69-9f14-2e7a3c6b8d05
create table if not exists generation_runs (
  id            uuid primary key,
  workspace     text not null,
  product_name  text not null,
  style         text not null default '',
  brand         text not null default '',
  status        text not null,
  plan_json     jsonb,
  ready_labels  text[] not null default '{}',
  failed_labels text[] not null default '{}',
  storage_keys  jsonb not null default '{}'::jsonb,
  started_at    timestamptz not null,
  finished_at   timestamptz
);
create index if not exists generation_runs_workspace_started_idx
  on generation_runs (workspace, started_at desc);
`

const QCreateProviderCredentials = `--sql 0f6a2d48-3b97-4e1c-a5d2-7c81e9b4f360
create table if not exists provider_credentials (
  id         uuid primary key,
  provider   text not null unique,
  token      text not null,
  properties jsonb not null default '{}'::jsonb,
  created_at timestamptz not null default now(),
  updated_at timestamptz not null default now()
);
`
