package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/luoyuxi/campusfeed/internal/domain/model"
)

func TestNewIdentity_Deterministic(t *testing.T) {
	a := model.NewIdentity("msg-1", "Lecture rescheduled", "Friday 10:00")
	b := model.NewIdentity("msg-1", "Lecture rescheduled", "Friday 10:00")

	assert.Equal(t, a, b, "same content-stable fields must hash to the same identity")
	assert.Len(t, a, 64, "sha256 hex digest")
}

func TestNewIdentity_DistinctItems(t *testing.T) {
	base := model.NewIdentity("msg-1", "Lecture rescheduled", "Friday 10:00")

	assert.NotEqual(t, base, model.NewIdentity("msg-2", "Lecture rescheduled", "Friday 10:00"))
	assert.NotEqual(t, base, model.NewIdentity("msg-1", "Lecture cancelled", "Friday 10:00"))
	assert.NotEqual(t, base, model.NewIdentity("msg-1", "Lecture rescheduled", "Friday 11:00"))
}

func TestNewIdentity_EmptyFields(t *testing.T) {
	// Empty fields are legal; identity still deterministic.
	assert.Equal(t, model.NewIdentity("id", "", ""), model.NewIdentity("id", "", ""))
	assert.NotEqual(t, model.NewIdentity("id", "", ""), model.NewIdentity("", "id", ""))
}

func TestServiceToken_Implicit(t *testing.T) {
	assert.True(t, model.ServiceToken{Source: "mail"}.Implicit())
	assert.False(t, model.ServiceToken{Source: "market", Bearer: "tok"}.Implicit())
}
