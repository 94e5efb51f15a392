package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "separate value",
			args:    []string{"-c", "conf.json", "-a", ":8080"},
			allowed: []string{"-c"},
			want:    []string{"-c", "conf.json"},
		},
		{
			name:    "equals form",
			args:    []string{"--config=alt.json", "-a", ":8080"},
			allowed: []string{"-c", "--config"},
			want:    []string{"--config=alt.json"},
		},
		{
			name:    "unknown flags dropped",
			args:    []string{"-x", "1", "positional"},
			allowed: []string{"-c"},
			want:    []string{},
		},
		{
			name:    "dash token is not a value",
			args:    []string{"-c", "-w", "5"},
			allowed: []string{"-c", "-w"},
			want:    []string{"-c", "-w", "5"},
		},
		{
			name:    "trailing flag without value",
			args:    []string{"-c"},
			allowed: []string{"-c"},
			want:    []string{"-c"},
		},
		{
			name:    "order preserved for repeats",
			args:    []string{"-w", "1", "-w", "2"},
			allowed: []string{"-w"},
			want:    []string{"-w", "1", "-w", "2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestConfigFiles(t *testing.T) {
	t.Run("short json flag", func(t *testing.T) {
		j, e := ConfigFiles([]string{"-c", "/etc/sheets.json", "-a", ":8080"})
		assert.Equal(t, "/etc/sheets.json", j)
		assert.Empty(t, e)
	})

	t.Run("long json flag and env file", func(t *testing.T) {
		j, e := ConfigFiles([]string{"-config=/x.json", "-env", "prod.env"})
		assert.Equal(t, "/x.json", j)
		assert.Equal(t, "prod.env", e)
	})

	t.Run("last wins", func(t *testing.T) {
		j, _ := ConfigFiles([]string{"-c", "1.json", "-config", "2.json"})
		assert.Equal(t, "2.json", j)
	})

	t.Run("nothing set", func(t *testing.T) {
		j, e := ConfigFiles([]string{"-x", "1"})
		assert.Empty(t, j)
		assert.Empty(t, e)
	})
}
