package schema

import (
	"encoding/json"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func decodeJSON(t *testing.T, raw []byte) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestDescrJSONOrdWithSkippedCompute(t *testing.T) {
	d := &DescrOrd{
		CreditFirst: false,
		StoragePh: &TrStoragePhase{
			StorageFeesCollected: uint256.NewInt(77),
			StatusChange:         "unchanged",
		},
		ComputePh: TrComputePhase{Skipped: &ComputeSkipped{Reason: "no_gas"}},
		Aborted:   true,
		Bounce:    &TrBouncePhase{Negfunds: &BounceNegfunds{}},
	}

	raw, err := DescrJSON(d)
	require.NoError(t, err)
	m := decodeJSON(t, raw)

	require.Equal(t, "ord", m["type"])
	require.Equal(t, true, m["aborted"])
	require.Nil(t, m["credit_ph"])
	require.Nil(t, m["action"])

	compute := m["compute_ph"].(map[string]interface{})
	require.Equal(t, "skipped", compute["type"])
	require.Equal(t, "no_gas", compute["skip_reason"])

	bounce := m["bounce"].(map[string]interface{})
	require.Equal(t, "negfunds", bounce["type"])

	storage := m["storage_ph"].(map[string]interface{})
	require.Equal(t, "77", storage["storage_fees_collected"], "grams must be stringified")
}

func TestDescrJSONTickTockWithAction(t *testing.T) {
	d := &DescrTickTock{
		IsTock:    true,
		StoragePh: TrStoragePhase{StorageFeesCollected: uint256.NewInt(1), StatusChange: "unchanged"},
		ComputePh: TrComputePhase{VM: &ComputeVM{
			Success:  true,
			GasFees:  uint256.NewInt(1000),
			GasUsed:  21000,
			GasLimit: 50000,
		}},
		Action: &TrActionPhase{Success: true, Valid: true, TotActions: 2},
	}

	raw, err := DescrJSON(d)
	require.NoError(t, err)
	m := decodeJSON(t, raw)

	require.Equal(t, "tick_tock", m["type"])
	require.Equal(t, true, m["is_tock"])

	action := m["action"].(map[string]interface{})
	require.Equal(t, true, action["success"])

	compute := m["compute_ph"].(map[string]interface{})
	require.Equal(t, "vm", compute["type"])
	require.Equal(t, "21000", compute["gas_used"], "64-bit counters must be stringified")
	require.Equal(t, "1000", compute["gas_fees"])
}
