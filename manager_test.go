// File: figtree/manager_test.go
package figtree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func silentManager() *Manager {
	opts := DefaultManagerOptions()
	opts.Settings = Settings{SettingSilent: true}
	return NewManagerWithOptions(opts)
}

// TestFragmentRegistration tests literal and file-based registration
func TestFragmentRegistration(t *testing.T) {
	t.Run("Literal", func(t *testing.T) {
		man := silentManager()
		frag, err := man.RegisterFragment("base", map[string]any{"a": 1})
		require.NoError(t, err)
		assert.Equal(t, "base", frag.Name)
		assert.Empty(t, frag.Bases)
	})

	t.Run("BasesFromString", func(t *testing.T) {
		man := silentManager()
		frag, err := man.RegisterFragment("child", map[string]any{
			"_base": "parent",
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"parent"}, frag.Bases)
	})

	t.Run("BasesFromSequence", func(t *testing.T) {
		man := silentManager()
		frag, err := man.RegisterFragment("child", map[string]any{
			"_base": []any{"a", "b"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, frag.Bases)
	})

	t.Run("InvalidBases", func(t *testing.T) {
		man := silentManager()
		_, err := man.RegisterFragment("child", map[string]any{
			"_base": 42,
		})
		assert.Error(t, err)
	})

	t.Run("EmptyName", func(t *testing.T) {
		man := silentManager()
		_, err := man.RegisterFragment("", map[string]any{"a": 1})
		assert.Error(t, err)
	})

	t.Run("UnknownLookup", func(t *testing.T) {
		man := silentManager()
		_, err := man.Fragment("ghost")
		assert.ErrorIs(t, err, ErrUnknownFragment)
	})
}

// TestRegisterFile tests multi-format fragment loading
func TestRegisterFile(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		t.Helper()
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		return path
	}

	t.Run("YAML", func(t *testing.T) {
		man := silentManager()
		path := write("app.yaml", "server:\n  port: 8080\n")
		frag, err := man.RegisterFile("", path)
		require.NoError(t, err)
		assert.Equal(t, "app", frag.Name)
		assert.Equal(t, 8080, frag.Tree().FlatValue().(map[string]any)["server"].(map[string]any)["port"])
	})

	t.Run("JSON", func(t *testing.T) {
		man := silentManager()
		path := write("app.json", `{"server": {"port": 8080}}`)
		frag, err := man.RegisterFile("j", path)
		require.NoError(t, err)
		assert.Equal(t, int64(8080), frag.Tree().FlatValue().(map[string]any)["server"].(map[string]any)["port"])
	})

	t.Run("TOML", func(t *testing.T) {
		man := silentManager()
		path := write("app.toml", "[server]\nport = 8080\n")
		frag, err := man.RegisterFile("t", path)
		require.NoError(t, err)
		assert.Equal(t, int64(8080), frag.Tree().FlatValue().(map[string]any)["server"].(map[string]any)["port"])
	})

	t.Run("ContentDetection", func(t *testing.T) {
		man := silentManager()
		path := write("noext", `{"a": 1}`)
		frag, err := man.RegisterFile("detected", path)
		require.NoError(t, err)
		assert.Equal(t, int64(1), frag.Tree().FlatValue().(map[string]any)["a"])
	})

	t.Run("MissingFile", func(t *testing.T) {
		man := silentManager()
		_, err := man.RegisterFile("x", filepath.Join(dir, "absent.yaml"))
		assert.Error(t, err)
	})
}

// TestRegisterDir tests recursive discovery with delimited names
func TestRegisterDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "models"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "base.yaml"), []byte("a: 1\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "models", "cnn.yaml"), []byte("b: 2\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("ignored"), 0644))

	t.Run("Recursive", func(t *testing.T) {
		man := silentManager()
		frags, err := man.RegisterDir(root, true, "")
		require.NoError(t, err)
		require.Len(t, frags, 2)
		assert.Equal(t, []string{"base", "models/cnn"}, man.FragmentNames())
	})

	t.Run("NonRecursive", func(t *testing.T) {
		man := silentManager()
		_, err := man.RegisterDir(root, false, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"base"}, man.FragmentNames())
	})

	t.Run("Prefixed", func(t *testing.T) {
		man := silentManager()
		_, err := man.RegisterDir(root, true, "pkg/")
		require.NoError(t, err)
		assert.Equal(t, []string{"pkg/base", "pkg/models/cnn"}, man.FragmentNames())
	})
}

// TestCreateConfig tests fragment composition and provenance
func TestCreateConfig(t *testing.T) {
	man := silentManager()
	_, err := man.RegisterFragment("base", map[string]any{
		"server": map[string]any{"host": "localhost", "port": 8080},
		"tags":   []any{"core"},
	})
	require.NoError(t, err)
	_, err = man.RegisterFragment("prod", map[string]any{
		"_base":  []any{"base"},
		"server": map[string]any{"host": "0.0.0.0"},
		"tags":   "+prod",
	})
	require.NoError(t, err)

	t.Run("AncestryMerge", func(t *testing.T) {
		cfg, err := man.QuickConfig("prod")
		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0", mustFlat(t, cfg, "server.host"))
		assert.Equal(t, 8080, mustFlat(t, cfg, "server.port"))
		assert.Equal(t, []any{"core", "prod"}, mustFlat(t, cfg, "tags"))
	})

	t.Run("ParentKeyStripped", func(t *testing.T) {
		cfg, err := man.QuickConfig("prod")
		require.NoError(t, err)
		assert.False(t, cfg.HasChild("_base"))
	})

	t.Run("AncestorsRecorded", func(t *testing.T) {
		cfg, err := man.QuickConfig("prod")
		require.NoError(t, err)
		assert.Equal(t, []any{"base", "prod"}, mustFlat(t, cfg, "ancestors"))
	})

	t.Run("LiteralOverlayWins", func(t *testing.T) {
		cfg, err := man.CreateConfig([]string{"prod"}, map[string]any{
			"server.port": 9999,
		})
		require.NoError(t, err)
		assert.Equal(t, 9999, mustFlat(t, cfg, "server.port"))
	})

	t.Run("ParentKeyInDataRejected", func(t *testing.T) {
		_, err := man.CreateConfig([]string{"prod"}, map[string]any{
			"_base": "sneaky",
		})
		assert.Error(t, err)
	})

	t.Run("DeterministicAcrossRuns", func(t *testing.T) {
		first, err := man.QuickConfig("base", "prod")
		require.NoError(t, err)
		second, err := man.QuickConfig("base", "prod")
		require.NoError(t, err)

		a, err := first.Export()
		require.NoError(t, err)
		b, err := second.Export()
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b))
	})

	t.Run("CycleFails", func(t *testing.T) {
		cyc := silentManager()
		_, err := cyc.RegisterFragment("a", map[string]any{"_base": []any{"b"}})
		require.NoError(t, err)
		_, err = cyc.RegisterFragment("b", map[string]any{"_base": []any{"a"}})
		require.NoError(t, err)

		_, err = cyc.QuickConfig("a")
		var ce *CompositionError
		assert.ErrorAs(t, err, &ce)
	})

	t.Run("UnknownFragment", func(t *testing.T) {
		_, err := man.QuickConfig("ghost")
		assert.ErrorIs(t, err, ErrUnknownFragment)
	})

	t.Run("EmptyComposition", func(t *testing.T) {
		cfg, err := man.CreateConfig(nil, map[string]any{"only": 1})
		require.NoError(t, err)
		assert.Equal(t, 1, mustFlat(t, cfg, "only"))
		assert.False(t, cfg.HasChild(AncestorsKey))
	})
}

// TestSave tests atomic YAML export
func TestSave(t *testing.T) {
	dir := t.TempDir()
	man := silentManager()
	_, err := man.RegisterFragment("base", map[string]any{"a": 1, "b": "two"})
	require.NoError(t, err)

	cfg, err := man.QuickConfig("base")
	require.NoError(t, err)

	path := filepath.Join(dir, "out", "config.yaml")
	require.NoError(t, man.Save(cfg, path))

	reloaded, err := man.RegisterFile("reloaded", path)
	require.NoError(t, err)
	assert.Equal(t, cfg.FlatValue(), reloaded.Tree().FlatValue())

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

// TestApplyEnv tests environment variable overrides
func TestApplyEnv(t *testing.T) {
	man := silentManager()
	_, err := man.RegisterFragment("base", map[string]any{
		"server": map[string]any{"host": "localhost", "port": 8080},
		"debug":  false,
	})
	require.NoError(t, err)

	cfg, err := man.QuickConfig("base")
	require.NoError(t, err)

	t.Setenv("MYAPP_SERVER_PORT", "9090")
	t.Setenv("MYAPP_DEBUG", "true")

	require.NoError(t, man.ApplyEnv(cfg, "MYAPP_"))
	assert.Equal(t, 9090, mustFlat(t, cfg, "server.port"))
	assert.Equal(t, true, mustFlat(t, cfg, "debug"))
	assert.Equal(t, "localhost", mustFlat(t, cfg, "server.host"))
}
