package sqlinline

const QUpsertRun = `--sql 3c2f5a8e-9b41-4d57-8e0a-1f6b2c7d9e40
insert into generation_runs (
  id,
  workspace,
  product_name,
  style,
  brand,
  status,
  plan_json,
  ready_labels,
  failed_labels,
  storage_keys,
  started_at,
  finished_at
)
values (
  $1::uuid,
  $2::text,
  $3::text,
  $4::text,
  $5::text,
  $6::text,
  $7::jsonb,
  $8::text[],
  $9::text[],
  $10::jsonb,
  $11::timestamptz,
  $12::timestamptz
)
on conflict (id) do update set
  status        = excluded.status,
  plan_json     = excluded.plan_json,
  ready_labels  = excluded.ready_labels,
  failed_labels = excluded.failed_labels,
  storage_keys  = excluded.storage_keys,
  finished_at   = excluded.finished_at;
`

const QListRecentRuns = `--sql 7e9d1c44-2a6b-4f3e-b8d5-0c1a9e6f2b73
select
  id::text,
  workspace,
  product_name,
  style,
  brand,
  status,
  plan_json,
  ready_labels,
  failed_labels,
  storage_keys,
  started_at,
  finished_at
from generation_runs
where workspace = $1::text
order by started_at desc
limit $2::int;
`

const QGetRun = `--sql b51e07d2-6c3a-4f88-9d14-2ae7c05f8b96
select
  id::text,
  workspace,
  product_name,
  style,
  brand,
  status,
  plan_json,
  ready_labels,
  failed_labels,
  storage_keys,
  started_at,
  finished_at
from generation_runs
where id = $1::uuid;
`
