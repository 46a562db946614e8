package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BulletinBriefs/internal/domain"
)

func TestDraftServiceValidatesTopic(t *testing.T) {
	t.Parallel()

	svc := NewDraftService(&fakeDrafter{})
	_, err := svc.Draft(context.Background(), domain.DraftBrief{Topic: "   "})
	assert.ErrorIs(t, err, ErrInvalidBrief)
}

func TestDraftServiceWithoutDrafter(t *testing.T) {
	t.Parallel()

	_, err := NewDraftService(nil).Draft(context.Background(), domain.DraftBrief{Topic: "Monsoon"})
	assert.ErrorIs(t, err, ErrDrafterUnavailable)
}

func TestDraftServicePassesTrimmedBrief(t *testing.T) {
	t.Parallel()

	d := &fakeDrafter{draft: domain.NewsDraft{Title: "Monsoon arrives early", Slug: "monsoon-arrives-early"}}
	got, err := NewDraftService(d).Draft(context.Background(), domain.DraftBrief{Topic: " Monsoon ", Category: " Weather "})
	require.NoError(t, err)

	assert.Equal(t, "Monsoon arrives early", got.Title)
	assert.Equal(t, "Monsoon", d.seen.Topic)
	assert.Equal(t, "Weather", d.seen.Category)
}

func TestDraftServiceWrapsDrafterErrors(t *testing.T) {
	t.Parallel()

	cause := errors.New("bad json")
	_, err := NewDraftService(&fakeDrafter{err: cause}).Draft(context.Background(), domain.DraftBrief{Topic: "x"})
	assert.ErrorIs(t, err, cause)
}
