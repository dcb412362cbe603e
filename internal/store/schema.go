package store

// Schema is the portable DDL for both backends. JSON-typed columns are
// stored as TEXT (marshalled/unmarshalled at the Go layer) so the same
// schema runs unmodified against Postgres and SQLite — this repo optimises
// for one schema, two drivers, over per-dialect migrations.
//
// Foreign keys carry ON DELETE CASCADE on every join and child table, and
// interactions is indexed on chat_id.
const Schema = `
CREATE TABLE IF NOT EXISTS agents (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS tools (
	id          TEXT PRIMARY KEY,
	agent_id    TEXT NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
	name        TEXT NOT NULL UNIQUE,
	description TEXT,
	parameters  TEXT,
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tools_agent_id ON tools(agent_id);

CREATE TABLE IF NOT EXISTS tool_invocation_policies (
	id            TEXT PRIMARY KEY,
	tool_id       TEXT NOT NULL REFERENCES tools(id) ON DELETE CASCADE,
	description   TEXT NOT NULL,
	argument_name TEXT NOT NULL,
	operator      TEXT NOT NULL,
	value         TEXT,
	action        TEXT NOT NULL,
	block_prompt  TEXT,
	created_at    TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tool_invocation_policies_tool_id ON tool_invocation_policies(tool_id);

CREATE TABLE IF NOT EXISTS trusted_data_policies (
	id             TEXT PRIMARY KEY,
	tool_id        TEXT NOT NULL REFERENCES tools(id) ON DELETE CASCADE,
	description    TEXT NOT NULL,
	attribute_path TEXT NOT NULL,
	operator       TEXT NOT NULL,
	value          TEXT,
	created_at     TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trusted_data_policies_tool_id ON trusted_data_policies(tool_id);

CREATE TABLE IF NOT EXISTS agent_tool_invocation_policies (
	agent_id  TEXT NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
	policy_id TEXT NOT NULL REFERENCES tool_invocation_policies(id) ON DELETE CASCADE,
	PRIMARY KEY (agent_id, policy_id)
);

CREATE TABLE IF NOT EXISTS agent_trusted_data_policies (
	agent_id  TEXT NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
	policy_id TEXT NOT NULL REFERENCES trusted_data_policies(id) ON DELETE CASCADE,
	PRIMARY KEY (agent_id, policy_id)
);

CREATE TABLE IF NOT EXISTS chats (
	id         TEXT PRIMARY KEY,
	agent_id   TEXT NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chats_agent_id ON chats(agent_id);

CREATE TABLE IF NOT EXISTS interactions (
	id           TEXT PRIMARY KEY,
	chat_id      TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
	content      TEXT NOT NULL,
	tainted      BOOLEAN NOT NULL DEFAULT FALSE,
	taint_reason TEXT,
	created_at   TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_interactions_chat_id ON interactions(chat_id);

CREATE TABLE IF NOT EXISTS dual_llm_config (
	id                       TEXT PRIMARY KEY DEFAULT 'default',
	main_agent_prompt        TEXT NOT NULL,
	quarantined_agent_prompt TEXT NOT NULL,
	summary_prompt           TEXT NOT NULL,
	max_rounds               INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS dual_llm_results (
	agent_id      TEXT NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
	tool_call_id  TEXT PRIMARY KEY,
	conversations TEXT,
	result        TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL
);
`
