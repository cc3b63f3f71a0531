package validator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsValidAddress(t *testing.T) {
	req := require.New(t)

	req.True(IsValidAddress("0xce4468e7ce84aceb74363f4ea64e5a038176f369"))
	req.False(IsValidAddress("0xce4468e7ce84aceb74363f4ea64e5a038176f3"))
	req.False(IsValidAddress("not-an-address"))
	req.False(IsValidAddress(""))
}
