package postgresql

import "github.com/dukex/pcp/pkg/persistence/sqlbase"

func migrations() []sqlbase.Migration {
	return []sqlbase.Migration{
		{Version: 1, Name: "hierarchy_registry_workflows", SQL: `
			CREATE TABLE teams (
				id TEXT PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				slug VARCHAR(255) NOT NULL UNIQUE,
				description TEXT NOT NULL DEFAULT '',
				owner_id TEXT NOT NULL DEFAULT '',
				parent_team_id TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_teams_parent_team_id ON teams(parent_team_id);

			CREATE TABLE users (
				id TEXT PRIMARY KEY,
				team_id TEXT NOT NULL,
				username VARCHAR(255) NOT NULL UNIQUE,
				display_name VARCHAR(255) NOT NULL DEFAULT '',
				email VARCHAR(255) NOT NULL DEFAULT '',
				role VARCHAR(50) NOT NULL DEFAULT 'member',
				active BOOLEAN NOT NULL DEFAULT true,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_users_team_id ON users(team_id);

			CREATE TABLE projects (
				id TEXT PRIMARY KEY,
				team_id TEXT NOT NULL,
				lead_id TEXT NOT NULL DEFAULT '',
				name VARCHAR(255) NOT NULL,
				slug VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				members JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				UNIQUE (team_id, slug)
			);

			CREATE TABLE policies (
				id TEXT PRIMARY KEY,
				team_id TEXT NOT NULL DEFAULT '',
				project_id TEXT NOT NULL DEFAULT '',
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				enforcement_type VARCHAR(50) NOT NULL CHECK (enforcement_type IN ('prepend', 'append', 'inject', 'validate')),
				content TEXT NOT NULL,
				priority INTEGER NOT NULL DEFAULT 0,
				active BOOLEAN NOT NULL DEFAULT true,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_policies_team_id ON policies(team_id);
			CREATE INDEX idx_policies_project_id ON policies(project_id);

			CREATE TABLE objectives (
				id TEXT PRIMARY KEY,
				team_id TEXT NOT NULL DEFAULT '',
				project_id TEXT NOT NULL DEFAULT '',
				user_id TEXT NOT NULL DEFAULT '',
				title VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				parent_objective_id TEXT NOT NULL DEFAULT '',
				status VARCHAR(50) NOT NULL DEFAULT 'active',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_objectives_team_id ON objectives(team_id);
			CREATE INDEX idx_objectives_project_id ON objectives(project_id);
			CREATE INDEX idx_objectives_user_id ON objectives(user_id);

			CREATE TABLE prompts (
				id TEXT PRIMARY KEY,
				name VARCHAR(255) NOT NULL UNIQUE,
				description TEXT NOT NULL DEFAULT '',
				is_deprecated BOOLEAN NOT NULL DEFAULT false,
				user_id TEXT NOT NULL DEFAULT '',
				active_version_id TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE TABLE prompt_versions (
				id TEXT PRIMARY KEY,
				prompt_id TEXT NOT NULL REFERENCES prompts(id) ON DELETE CASCADE,
				version VARCHAR(64) NOT NULL,
				system_template TEXT NOT NULL DEFAULT '',
				user_template TEXT NOT NULL,
				input_schema JSONB,
				tags TEXT[] NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				UNIQUE (prompt_id, version)
			);

			CREATE TABLE workflows (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				project_id TEXT NOT NULL DEFAULT '',
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				steps JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_user_id ON workflows(user_id);

			CREATE TABLE shares (
				resource_id TEXT NOT NULL,
				user_id TEXT NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				PRIMARY KEY (resource_id, user_id)
			);

			CREATE INDEX idx_shares_user_id ON shares(user_id);
		`},
		{Version: 2, Name: "usage_records", SQL: `
			CREATE TABLE usage_records (
				id TEXT PRIMARY KEY,
				prompt_name VARCHAR(255) NOT NULL,
				prompt_version VARCHAR(64) NOT NULL DEFAULT '',
				success BOOLEAN NOT NULL,
				latency_ms BIGINT NOT NULL DEFAULT 0,
				error TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_usage_records_created_at ON usage_records(created_at);
			CREATE INDEX idx_usage_records_prompt_name ON usage_records(prompt_name);
		`},
	}
}
