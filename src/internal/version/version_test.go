// FILE: logpulse/src/internal/version/version_test.go
package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrings(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	Version = "1.2.3"
	assert.Equal(t, "1.2.3", Short())
	assert.Equal(t, "logpulse/1.2.3", ServerName())
	assert.Contains(t, String(), "1.2.3 (commit: ")
}
