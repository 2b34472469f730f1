package main

import (
	"io/fs"
	"strings"
	"testing"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	t.Parallel()

	for _, set := range sets {
		entries, err := fs.ReadDir(set.fsys, set.dir)
		if err != nil {
			t.Fatalf("%s: read dir: %v", set.name, err)
		}

		ups, downs := map[string]bool{}, map[string]bool{}
		for _, e := range entries {
			switch {
			case strings.HasSuffix(e.Name(), ".up.sql"):
				ups[strings.TrimSuffix(e.Name(), ".up.sql")] = true
			case strings.HasSuffix(e.Name(), ".down.sql"):
				downs[strings.TrimSuffix(e.Name(), ".down.sql")] = true
			}
		}

		if len(ups) == 0 {
			t.Fatalf("%s: no migrations embedded", set.name)
		}

		for v := range ups {
			if !downs[v] {
				t.Fatalf("%s: %s has no down migration", set.name, v)
			}
		}
	}
}

func TestSelectSets(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		appEnv string
		steps  int
		want   []string
	}{
		{"prod", "PROD", 0, []string{"schema"}},
		{"dev", "DEV", 0, []string{"schema", "dev seed"}},
		{"dev_forward_steps", "DEV", 1, []string{"schema", "dev seed"}},
		{"dev_rollback", "DEV", -1, []string{"schema"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := selectSets(&migratorConfig{AppEnv: tt.appEnv, Steps: tt.steps})
			if len(got) != len(tt.want) {
				t.Fatalf("want %d sets, got %d", len(tt.want), len(got))
			}

			for i, s := range got {
				if s.name != tt.want[i] {
					t.Fatalf("set %d: want %q, got %q", i, tt.want[i], s.name)
				}
			}
		})
	}
}
