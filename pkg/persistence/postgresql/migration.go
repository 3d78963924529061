package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE releases (
				name VARCHAR(255) PRIMARY KEY,
				product VARCHAR(255) NOT NULL,
				version VARCHAR(255) NOT NULL,
				branch VARCHAR(255) NOT NULL,
				revision VARCHAR(255) NOT NULL,
				build_number INT NOT NULL,
				release_eta TIMESTAMP WITH TIME ZONE,
				status VARCHAR(50) NOT NULL CHECK (status IN ('scheduled', 'shipped', 'aborted')),
				partial_updates JSONB,
				row_version INT NOT NULL DEFAULT 1,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_releases_product ON releases(product);
			CREATE INDEX idx_releases_branch ON releases(branch);
			CREATE INDEX idx_releases_status ON releases(status);
			CREATE UNIQUE INDEX idx_releases_coordinates ON releases(product, version, build_number);

			CREATE TABLE phases (
				release_name VARCHAR(255) NOT NULL REFERENCES releases(name) ON DELETE CASCADE,
				name VARCHAR(255) NOT NULL,
				position INT NOT NULL,
				task_id VARCHAR(255) NOT NULL,
				rendered JSONB NOT NULL,
				submitted BOOLEAN NOT NULL DEFAULT FALSE,
				completed TIMESTAMP WITH TIME ZONE,
				completed_by VARCHAR(255),
				PRIMARY KEY (release_name, name)
			);

			CREATE INDEX idx_phases_release_name ON phases(release_name);
			CREATE INDEX idx_phases_submitted ON phases(submitted);
		`,
	}
}
