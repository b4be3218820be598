package errorx

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := Validation("phone", MsgInvalidPhone)
	wrapped := fmt.Errorf("create contact: %w", err)

	assert.True(t, errors.Is(wrapped, ErrValidation))
	assert.False(t, errors.Is(wrapped, ErrNotFound))
	assert.True(t, errors.Is(wrapped, &Error{Kind: KindValidation, MessageID: MsgInvalidPhone}))
	assert.False(t, errors.Is(wrapped, &Error{Kind: KindValidation, MessageID: MsgInvalidEmail}))
}

func TestError_HTTPStatus(t *testing.T) {
	cases := map[*Error]int{
		Validation("name", MsgFieldRequired): http.StatusBadRequest,
		Unauthenticated(MsgInvalidToken):     http.StatusUnauthorized,
		Forbidden(MsgForbidden):              http.StatusForbidden,
		NotFound("contact"):                  http.StatusNotFound,
		Conflict("tag", nil):                 http.StatusConflict,
		InvalidState(MsgMessageNotEditable):  http.StatusConflict,
		Provider(errors.New("down")):         http.StatusBadGateway,
		Internal(errors.New("boom")):         http.StatusInternalServerError,
	}
	for e, status := range cases {
		assert.Equal(t, status, e.HTTPStatus(), e.Error())
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(fmt.Errorf("x: %w", NotFound("message"))))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.True(t, IsKind(InvalidState(MsgMessageCannotCancel), KindInvalidState))
	assert.False(t, IsKind(nil, KindInvalidState))
}

func TestError_WithParamCopies(t *testing.T) {
	base := Validation("email", MsgInvalidEmail)
	derived := base.WithParam("Value", "x@")

	assert.Equal(t, "x@", derived.Data["Value"])
	assert.Equal(t, "email", derived.Data["Field"])
	_, ok := base.Data["Value"]
	assert.False(t, ok)
}

func TestError_UnwrapAndMessage(t *testing.T) {
	cause := errors.New("unique constraint")
	err := Conflict("contact", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "conflict")
	assert.Contains(t, err.Error(), "unique constraint")
	assert.Nil(t, Wrapf(nil, "noop"))
	assert.True(t, errors.Is(Wrapf(err, "save %s", "contact"), ErrConflict))
}
