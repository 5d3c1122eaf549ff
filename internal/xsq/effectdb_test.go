package xsq

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectDBInternsDuplicates(t *testing.T) {
	db := NewEffectDB()
	a := db.Intern("settings-a")
	b := db.Intern("settings-b")
	aAgain := db.Intern("settings-a")
	assert.Equal(t, a, aAgain)
	assert.NotEqual(t, a, b)
	assert.Equal(t, []string{"settings-a", "settings-b"}, db.Entries())
}
