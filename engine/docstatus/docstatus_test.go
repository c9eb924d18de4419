package docstatus

import "testing"

func TestStatusKey_LeaseKey_Distinct(t *testing.T) {
	if statusKey("doc-1") == leaseKey("doc-1") {
		t.Fatal("expected status and lease keys to differ")
	}
	if statusKey("doc-1") == statusKey("doc-2") {
		t.Fatal("expected different documents to produce different keys")
	}
}
