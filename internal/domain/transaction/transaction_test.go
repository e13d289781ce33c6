package transaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestType_IsCredit(t *testing.T) {
	tests := []struct {
		typ    Type
		credit bool
	}{
		{TypeDeposit, true},
		{TypeCredit, true},
		{TypeTransferIn, true},
		{TypeDebit, false},
		{TypeTransferOut, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			assert.Equal(t, tt.credit, tt.typ.IsCredit())
		})
	}
}

func TestType_Valid(t *testing.T) {
	for _, typ := range []Type{TypeDeposit, TypeCredit, TypeDebit, TypeTransferIn, TypeTransferOut} {
		assert.True(t, typ.Valid(), "%s should be valid", typ)
	}

	assert.False(t, Type("withdrawal").Valid())
	assert.False(t, Type("").Valid())
	assert.False(t, Type("DEPOSIT").Valid())
}
