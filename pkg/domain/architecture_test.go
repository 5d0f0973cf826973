package domain

import (
	"testing"

	"tankcore/testutil"
)

func TestDomainStaysPure(t *testing.T) {
	testutil.AssertPure(t, ".")
}
