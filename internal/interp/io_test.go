package interp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logbie/wfl-sub001/internal/source"
)

func TestDecodeJSONResponseLiftsObjectIntoRecord(t *testing.T) {
	v, err := decodeJSONResponse([]byte(`{"name": "Ada", "age": 36}`), source.Span{})
	require.NoError(t, err)
	require.Equal(t, "Ada", v.Record["name"].Text)
	require.Equal(t, float64(36), v.Record["age"].Number)
}

func TestDecodeJSONResponseLiftsArrayIntoList(t *testing.T) {
	v, err := decodeJSONResponse([]byte(`[1, 2, 3]`), source.Span{})
	require.NoError(t, err)
	require.Len(t, v.List, 3)
	assert.Equal(t, float64(2), v.List[1].Number)
}

func TestDecodeJSONResponseRejectsMalformedJSON(t *testing.T) {
	_, err := decodeJSONResponse([]byte(`{not json`), source.Span{})
	require.Error(t, err)
	diag, ok := AsDiagnostic(err)
	require.True(t, ok)
	assert.Equal(t, "E4009", string(diag.Code))
}

// TestDecodeJSONResponseRejectsScalarPayload checks the schema boundary
// itself: a syntactically valid JSON document that is neither an object nor
// an array (here, a bare number) must still be rejected, since nothing in
// this module can lift a bare scalar into a Record or List.
func TestDecodeJSONResponseRejectsScalarPayload(t *testing.T) {
	_, err := decodeJSONResponse([]byte(`42`), source.Span{})
	require.Error(t, err)
	diag, ok := AsDiagnostic(err)
	require.True(t, ok)
	assert.Equal(t, "E4009", string(diag.Code))
}

// TestOpenURLReadResponseLiftsJSONBodyIntoRecordField drives the full
// open url -> read response -> Record field-access path against a real
// HTTP server, checking the boundary end to end rather than only at the
// decodeJSONResponse unit.
func TestOpenURLReadResponseLiftsJSONBodyIntoRecordField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	}))
	defer srv.Close()

	out, err := runScript(t, `
open url at "`+srv.URL+`" as resp
store body as read response from resp
close resp
display body's status
`)
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)
}
