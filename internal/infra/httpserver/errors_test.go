package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	appanalysis "github.com/bryanwahyu/aidentify/internal/application/analysis"
	"github.com/bryanwahyu/aidentify/internal/domain/ai"
	"github.com/bryanwahyu/aidentify/internal/domain/analysis"
	"github.com/bryanwahyu/aidentify/internal/domain/chats"
	"github.com/bryanwahyu/aidentify/internal/domain/media"
)

func TestErrorStatus(t *testing.T) {
	staged := func(err error) error {
		return &analysis.StageError{Stage: analysis.StageClassified, Kind: media.KindVideo, Err: err}
	}
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: file is required", errBadRequest), http.StatusBadRequest},
		{appanalysis.ErrInvalidCommand, http.StatusBadRequest},
		{staged(media.ErrTooLarge), http.StatusRequestEntityTooLarge},
		{&http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge},
		{staged(media.ErrUnsupportedMedia), http.StatusUnsupportedMediaType},
		{staged(media.ErrUnreadableMedia), http.StatusUnprocessableEntity},
		{staged(media.ErrNoSignal), http.StatusUnprocessableEntity},
		{staged(chats.ErrChatNotFound), http.StatusNotFound},
		{chats.ErrNotFound, http.StatusNotFound},
		{staged(fmt.Errorf("%w: %w", ai.ErrOracleUnavailable, ai.ErrQuotaExceeded)), http.StatusTooManyRequests},
		{staged(ai.ErrOracleUnavailable), http.StatusBadGateway},
		{staged(media.ErrStorage), http.StatusBadGateway},
		{staged(ai.ErrDegradedVerdict), http.StatusBadGateway},
		{staged(ai.ErrOracleTimeout), http.StatusGatewayTimeout},
		{staged(context.DeadlineExceeded), http.StatusGatewayTimeout},
		{staged(fmt.Errorf("%w: %w", media.ErrStorage, context.DeadlineExceeded)), http.StatusBadGateway},
		{staged(fmt.Errorf("%w: %w", ai.ErrOracleUnavailable, context.Canceled)), http.StatusBadGateway},
		{staged(fmt.Errorf("%w: %w", ai.ErrOracleTimeout, context.DeadlineExceeded)), http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := errorStatus(c.err); got != c.want {
			t.Fatalf("errorStatus(%v): want=%d got=%d", c.err, c.want, got)
		}
	}
}
