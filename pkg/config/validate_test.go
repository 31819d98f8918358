package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDefaultPasses(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestValidateRejectsBadPort(t *testing.T) {
	c := Default()
	c.Database.Port = 0

	err := c.Validate()
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "database", ve.Component)
	assert.Equal(t, "port", ve.Field)
}

func TestValidateRejectsMissingHost(t *testing.T) {
	c := Default()
	c.Database.Host = ""
	assert.ErrorIs(t, c.Validate(), ErrMissingRequiredField)
}

func TestValidateRejectsZeroHeartbeat(t *testing.T) {
	c := Default()
	c.Driver.HeartbeatInterval = 0
	assert.ErrorIs(t, c.Validate(), ErrInvalidValue)
}

func TestValidateAllowsWakeDisabled(t *testing.T) {
	c := Default()
	assert.NoError(t, c.Validate())
}

func TestValidateRejectsNegativeWakeDB(t *testing.T) {
	c := Default()
	c.Wake.Addr = "localhost:6379"
	c.Wake.DB = -1
	assert.ErrorIs(t, c.Validate(), ErrInvalidValue)
}
