package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"food-gateway/internal/core/domain"
)

func TestRenderMenu_Buffet(t *testing.T) {
	barcode := "4600000000001"
	resp := domain.Response{
		"result": 0,
		"products": []any{
			map[string]any{"product_id": "12gf3", "name": "Pie", "price": 15.0, "unit_name": "pcs", "product_barcode": barcode},
			map[string]any{"product_id": "1g41f3", "name": "Juice", "price": 32.5, "unit_name": "ml", "product_barcode": nil},
		},
	}
	var out bytes.Buffer

	require.NoError(t, renderMenu(&out, resp))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "PRODUCT_ID")
	assert.Contains(t, lines[1], "12gf3")
	assert.Contains(t, lines[1], "15.00")
	assert.Contains(t, lines[1], barcode)
	assert.Contains(t, lines[2], "32.50")
	assert.Contains(t, lines[2], "N/A")
}

func TestRenderMenu_DiningRoom(t *testing.T) {
	resp := domain.Response{
		"result": 0,
		"menu": []any{
			map[string]any{"menu_id": "m1", "name": "Lunch", "price": 120.0, "subsidy": 80.0, "school_name": "School 5"},
		},
	}
	var out bytes.Buffer

	require.NoError(t, renderMenu(&out, resp))

	assert.Contains(t, out.String(), "MENU_ID")
	assert.Contains(t, out.String(), "80.00")
	assert.Contains(t, out.String(), "School 5")
}

func TestReadSendCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "check.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"account": "100200", "account_type": "ls", "agent": "a", "service_type": "buffet", "sum": 30,
		"products": [{"product_id": "12gf3", "price": 0, "count": 2}]
	}`), 0o600))

	req, err := readSendCheck(path)

	require.NoError(t, err)
	assert.Equal(t, domain.CommandSendCheck, req.Command)
	assert.True(t, req.HasProductID())
	assert.Equal(t, 2, req.Products[0].Count)
}

func TestReadSendCheck_Missing(t *testing.T) {
	_, err := readSendCheck(filepath.Join(t.TempDir(), "nope.json"))

	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	err := describe(&domain.CommandError{
		Kind:    domain.ErrInvalidRequest,
		Message: "Validation failed",
		Details: []string{"account: must not be empty"},
	})
	assert.Equal(t, "Validation failed\n  - account: must not be empty", err.Error())

	plain := errors.New("boom")
	assert.Same(t, plain, describe(plain))
}

func TestWriteEventRow(t *testing.T) {
	var out bytes.Buffer
	writeEventRow(&out, &kgo.Record{
		Offset: 7,
		Key:    []byte("100200"),
		Value:  []byte(`{"command":"pay","result":"0","enriched":false,"processed_at":"2024-03-05T11:07:09Z"}`),
	})

	assert.Equal(t, "7\t100200\tpay\tN/A\t0\tfalse\t2024-03-05T11:07:09Z\n", out.String())
}
