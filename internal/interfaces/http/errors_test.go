package http_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cavebenin/emecef-pos/internal/domain/emecef"
	apphttp "github.com/cavebenin/emecef-pos/internal/interfaces/http"
)

func TestStatusForKind(t *testing.T) {
	cases := map[emecef.Kind]int{
		emecef.KindValidation:    http.StatusUnprocessableEntity,
		emecef.KindConfiguration: http.StatusPreconditionFailed,
		emecef.KindTimeout:       http.StatusGatewayTimeout,
		emecef.KindTransport:     http.StatusBadGateway,
		emecef.KindProtocol:      http.StatusBadGateway,
		emecef.KindBusiness:      http.StatusBadGateway,
		emecef.KindState:         http.StatusConflict,
		emecef.KindUnknown:       http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, apphttp.StatusForKind(kind), kind.String())
	}
}
