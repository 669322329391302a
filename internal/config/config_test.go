package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENEJB_JNDINAME_FORMAT", "{deploymentId}{interfaceType.annotationName}")
	t.Setenv("ASSEMBLER_STRICT_REFERENCES", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 10, cfg.ExceptionBuffer)
	assert.True(t, cfg.JndiFailOnCollision)
	assert.False(t, cfg.StrictReferences)

	props := cfg.Properties()
	assert.Equal(t, "{deploymentId}{interfaceType.annotationName}", props["openejb.jndiname.format"])
	assert.Equal(t, "false", props["openejb.assembler.strict.references"])
	assert.Equal(t, "true", props["openejb.autocreate.containers"])
	_, ok := props["openejb.jndiname.strategy.class"]
	assert.False(t, ok)
}
