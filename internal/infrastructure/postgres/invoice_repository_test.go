package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cavebenin/emecef-pos/internal/domain/repository"
)

func TestInvoiceWhere(t *testing.T) {
	where, args := invoiceWhere(repository.InvoiceFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, args = invoiceWhere(repository.InvoiceFilter{Type: "fv"})
	assert.Equal(t, " WHERE type = $1", where)
	assert.Equal(t, []any{"FV"}, args)

	where, args = invoiceWhere(repository.InvoiceFilter{Type: "AV", Search: "dupont"})
	assert.Equal(t, " WHERE type = $1 AND (number ILIKE $2 OR customer_name ILIKE $2 OR emcf_uid ILIKE $2)", where)
	assert.Equal(t, []any{"AV", "%dupont%"}, args)
}
