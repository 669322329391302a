package assembler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplainListsResolvedPolicy(t *testing.T) {
	t.Parallel()

	a := New(WithLogger(quiet()))
	app, err := a.CreateApplication(context.Background(), shopApp("shop"))
	require.NoError(t, err)
	order, _ := app.Bean("Order")

	policies := Explain(order)
	byMethod := map[string]MethodPolicy{}
	for _, p := range policies {
		byMethod[p.Method] = p
	}
	require.Contains(t, byMethod, "place(java.lang.String)")
	place := byMethod["place(java.lang.String)"]
	assert.Equal(t, "RequiresNew", place.Transaction)
	require.NotEmpty(t, place.Interceptors)
	assert.Equal(t, auditor, place.Interceptors[0])
	assert.Empty(t, place.Lock, "stateless beans have no lock")

	mail := byMethod["sendMail()"]
	assert.True(t, mail.Asynchronous)
	assert.Equal(t, "Required", mail.Transaction)

	for i := 1; i < len(policies); i++ {
		assert.Less(t, policies[i-1].Method, policies[i].Method)
	}
	for _, p := range policies {
		assert.NotContains(t, p.Method, "getEJBObject")
	}
}
