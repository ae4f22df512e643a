// File: figtree/creator_test.go
package figtree

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	label string
	wraps []string
}

func widgetRegistry() *Registry {
	reg := NewRegistry()
	reg.RegisterComponent("widget", func(cfg *Node) (any, error) {
		label, err := cfg.PullString("label", "unnamed")
		if err != nil {
			return nil, err
		}
		return &widget{label: label}, nil
	})
	reg.RegisterModifier("inner", func(next Constructor) Constructor {
		return func(cfg *Node) (any, error) {
			p, err := next(cfg)
			if err != nil {
				return nil, err
			}
			w := p.(*widget)
			w.wraps = append(w.wraps, "inner")
			return w, nil
		}
	})
	reg.RegisterModifier("outer", func(next Constructor) Constructor {
		return func(cfg *Node) (any, error) {
			p, err := next(cfg)
			if err != nil {
				return nil, err
			}
			w := p.(*widget)
			w.wraps = append(w.wraps, "outer")
			return w, nil
		}
	})
	return reg
}

// TestMemoization tests the product cache contract
func TestMemoization(t *testing.T) {
	n := mustParse(t, `w: {_type: widget, label: memo}`)
	n.SetRegistry(widgetRegistry())

	t.Run("SequentialPullsShareIdentity", func(t *testing.T) {
		first, err := n.Pull("w")
		require.NoError(t, err)
		second, err := n.Pull("w")
		require.NoError(t, err)
		assert.Same(t, first.(*widget), second.(*widget))
	})

	t.Run("ClearProductRebuilds", func(t *testing.T) {
		first, err := n.Pull("w")
		require.NoError(t, err)
		n.ClearProduct(true)
		second, err := n.Pull("w")
		require.NoError(t, err)
		assert.NotSame(t, first.(*widget), second.(*widget))
	})

	t.Run("CreateAlwaysFresh", func(t *testing.T) {
		cached, err := n.Pull("w")
		require.NoError(t, err)
		w, err := n.Peek("w")
		require.NoError(t, err)
		fresh, err := w.Create()
		require.NoError(t, err)
		assert.NotSame(t, cached.(*widget), fresh.(*widget))

		// The cache keeps the earlier product.
		again, err := n.Pull("w")
		require.NoError(t, err)
		assert.Same(t, cached.(*widget), again.(*widget))
	})

	t.Run("CreateFillsEmptyCache", func(t *testing.T) {
		n.ClearProduct(true)
		w, err := n.Peek("w")
		require.NoError(t, err)
		fresh, err := w.Create()
		require.NoError(t, err)
		cached, err := n.Pull("w")
		require.NoError(t, err)
		assert.Same(t, fresh.(*widget), cached.(*widget))
	})
}

// TestCreatePolicies tests force_create and allow_create settings
func TestCreatePolicies(t *testing.T) {
	t.Run("ForceCreate", func(t *testing.T) {
		n := mustParse(t, `w: {_type: widget}`)
		n.SetRegistry(widgetRegistry())
		n.SetSetting(SettingForceCreate, true)

		first, err := n.Pull("w")
		require.NoError(t, err)
		second, err := n.Pull("w")
		require.NoError(t, err)
		assert.NotSame(t, first.(*widget), second.(*widget))
	})

	t.Run("AllowCreateFalse", func(t *testing.T) {
		n := mustParse(t, `w: {_type: widget}`)
		n.SetRegistry(widgetRegistry())
		n.SetSetting(SettingAllowCreate, false)

		_, err := n.Pull("w")
		assert.ErrorIs(t, err, ErrProductUnavailable)

		// Once a product exists, the policy permits returning it.
		n.WithSettings(Settings{SettingAllowCreate: true}, func() {
			_, err := n.Pull("w")
			require.NoError(t, err)
		})
		v, err := n.Pull("w")
		require.NoError(t, err)
		assert.NotNil(t, v)
	})

	t.Run("ForceAliasBypassesCache", func(t *testing.T) {
		n := mustParse(t, `
w: {_type: widget}
fresh: <!>w
`)
		n.SetRegistry(widgetRegistry())

		cached, err := n.Pull("w")
		require.NoError(t, err)
		forced, err := n.Pull("fresh")
		require.NoError(t, err)
		assert.NotSame(t, cached.(*widget), forced.(*widget))
	})
}

// TestModifierComposition tests ordered constructor wrapping
func TestModifierComposition(t *testing.T) {
	t.Run("SingleString", func(t *testing.T) {
		n := mustParse(t, `w: {_type: widget, _mod: inner}`)
		n.SetRegistry(widgetRegistry())
		v, err := n.Pull("w")
		require.NoError(t, err)
		assert.Equal(t, []string{"inner"}, v.(*widget).wraps)
	})

	t.Run("FirstListedOutermost", func(t *testing.T) {
		n := mustParse(t, `w: {_type: widget, _mod: [outer, inner]}`)
		n.SetRegistry(widgetRegistry())
		v, err := n.Pull("w")
		require.NoError(t, err)
		// Wrapping runs inside-out, so the outermost modifier appends last.
		assert.Equal(t, []string{"inner", "outer"}, v.(*widget).wraps)
	})

	t.Run("OrderSensitive", func(t *testing.T) {
		a := mustParse(t, `w: {_type: widget, _mod: [outer, inner]}`)
		a.SetRegistry(widgetRegistry())
		b := mustParse(t, `w: {_type: widget, _mod: [inner, outer]}`)
		b.SetRegistry(widgetRegistry())

		va, err := a.Pull("w")
		require.NoError(t, err)
		vb, err := b.Pull("w")
		require.NoError(t, err)
		assert.NotEqual(t, va.(*widget).wraps, vb.(*widget).wraps)
	})

	t.Run("UnknownModifier", func(t *testing.T) {
		n := mustParse(t, `w: {_type: widget, _mod: ghost}`)
		n.SetRegistry(widgetRegistry())
		_, err := n.Pull("w")
		assert.ErrorIs(t, err, ErrUnknownModifier)
	})
}

// TestRegistryFailures tests lookup misses and missing registries
func TestRegistryFailures(t *testing.T) {
	t.Run("UnknownComponent", func(t *testing.T) {
		n := mustParse(t, `w: {_type: ghost}`)
		n.SetRegistry(NewRegistry())
		_, err := n.Pull("w")
		assert.ErrorIs(t, err, ErrUnknownComponent)
	})

	t.Run("NoRegistry", func(t *testing.T) {
		n := mustParse(t, `w: {_type: widget}`)
		_, err := n.Pull("w")
		assert.ErrorIs(t, err, ErrNoRegistry)
	})

	t.Run("ConstructorErrorPropagates", func(t *testing.T) {
		boom := errors.New("boom")
		reg := NewRegistry()
		reg.RegisterComponent("bad", func(cfg *Node) (any, error) {
			return nil, boom
		})
		n := mustParse(t, `w: {_type: bad}`)
		n.SetRegistry(reg)
		_, err := n.Pull("w")
		assert.ErrorIs(t, err, boom)
	})
}

// TestSelfExtracting tests argument structs populated from the node
func TestSelfExtracting(t *testing.T) {
	type dbArgs struct {
		DSN      string `fig:"dsn"`
		PoolSize int    `fig:"pool_size"`
		Verbose  bool
	}

	reg := NewRegistry()
	reg.RegisterComponentArgs("db",
		func() any { return &dbArgs{PoolSize: 4} },
		func(args any) (any, error) { return args.(*dbArgs), nil },
	)

	t.Run("TaggedAndUntaggedFields", func(t *testing.T) {
		n := mustParse(t, `
conn:
  _type: db
  dsn: postgres://x
  verbose: true
`)
		n.SetRegistry(reg)
		v, err := n.Pull("conn")
		require.NoError(t, err)
		args := v.(*dbArgs)
		assert.Equal(t, "postgres://x", args.DSN)
		assert.True(t, args.Verbose)
		// Absent parameter keeps the prototype default.
		assert.Equal(t, 4, args.PoolSize)
	})

	t.Run("ParametersResolveThroughDeferral", func(t *testing.T) {
		n := mustParse(t, `
pool_size: 32
conn:
  _type: db
  dsn: <>shared_dsn
shared_dsn: postgres://shared
`)
		n.SetRegistry(reg)
		v, err := n.Pull("conn")
		require.NoError(t, err)
		args := v.(*dbArgs)
		assert.Equal(t, "postgres://shared", args.DSN)
		assert.Equal(t, 32, args.PoolSize)
	})
}

// TestCreatorStrategies tests _creator overrides and entry preferences
func TestCreatorStrategies(t *testing.T) {
	reg := widgetRegistry()
	reg.RegisterCreator("tagging", creatorFunc(func(cfg *Node) (any, error) {
		v, err := DefaultCreator{}.CreateProduct(cfg)
		if err != nil {
			return nil, err
		}
		if w, ok := v.(*widget); ok {
			w.wraps = append(w.wraps, "tagged")
		}
		return v, nil
	}))

	t.Run("NodeLevelOverride", func(t *testing.T) {
		n := mustParse(t, `w: {_type: widget, _creator: tagging}`)
		n.SetRegistry(reg)
		v, err := n.Pull("w")
		require.NoError(t, err)
		assert.Equal(t, []string{"tagged"}, v.(*widget).wraps)
	})

	t.Run("SettingLevelOverride", func(t *testing.T) {
		n := mustParse(t, `w: {_type: widget}`)
		n.SetRegistry(reg)
		n.SetSetting(SettingCreator, "tagging")
		v, err := n.Pull("w")
		require.NoError(t, err)
		assert.Equal(t, []string{"tagged"}, v.(*widget).wraps)
	})

	t.Run("EntryPreference", func(t *testing.T) {
		entryReg := widgetRegistry()
		entryReg.RegisterCreator("tagging", creatorFunc(func(cfg *Node) (any, error) {
			return &widget{label: "via-entry"}, nil
		}))
		entryReg.RegisterComponent("special", func(cfg *Node) (any, error) {
			return &widget{label: "plain"}, nil
		}).WithCreator("tagging")

		n := mustParse(t, `w: {_type: special}`)
		n.SetRegistry(entryReg)
		v, err := n.Pull("w")
		require.NoError(t, err)
		assert.Equal(t, "via-entry", v.(*widget).label)
	})

	t.Run("UnknownCreator", func(t *testing.T) {
		n := mustParse(t, `w: {_type: widget, _creator: ghost}`)
		n.SetRegistry(reg)
		_, err := n.Pull("w")
		assert.ErrorIs(t, err, ErrUnknownCreator)
	})
}

// creatorFunc adapts a function to the Creator interface for tests.
type creatorFunc func(cfg *Node) (any, error)

func (f creatorFunc) CreateProduct(cfg *Node) (any, error) { return f(cfg) }

// TestScripts tests the script namespace
func TestScripts(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterScript("train", "runs training", func(cfg *Node) (any, error) {
		return cfg.Pull("epochs")
	})

	n := mustParse(t, `epochs: 10`)
	n.SetRegistry(reg)

	v, err := reg.RunScript("train", n)
	require.NoError(t, err)
	assert.Equal(t, 10, v)

	_, err = reg.RunScript("ghost", n)
	assert.ErrorIs(t, err, ErrUnknownScript)

	assert.Len(t, reg.Scripts(), 1)
}
