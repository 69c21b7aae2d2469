package battery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const energyUevent = `POWER_SUPPLY_NAME=BAT0
POWER_SUPPLY_TYPE=Battery
POWER_SUPPLY_STATUS=Discharging
POWER_SUPPLY_PRESENT=1
POWER_SUPPLY_ENERGY_FULL_DESIGN=50000000
POWER_SUPPLY_ENERGY_FULL=40000000
POWER_SUPPLY_ENERGY_NOW=20000000
POWER_SUPPLY_CAPACITY=50
`

const chargeUevent = `POWER_SUPPLY_NAME=BAT1
POWER_SUPPLY_STATUS=Charging
POWER_SUPPLY_CHARGE_FULL_DESIGN=4000000
POWER_SUPPLY_CHARGE_FULL=3000000
POWER_SUPPLY_CHARGE_NOW=2700000
`

func writeUevent(t *testing.T, name, content string) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "uevent"), []byte(content), 0o644))
	return root
}

func TestRead_EnergyFullDesign(t *testing.T) {
	root := writeUevent(t, "BAT0", energyUevent)

	src, err := Open(root, "", true)
	require.NoError(t, err)
	r, err := src.Read()
	require.NoError(t, err)
	assert.Equal(t, Reading{Level: 40, Status: StatusDischarging}, r)
}

func TestRead_EnergyFull(t *testing.T) {
	root := writeUevent(t, "BAT0", energyUevent)

	src, err := Open(root, "BAT0", false)
	require.NoError(t, err)
	r, err := src.Read()
	require.NoError(t, err)
	assert.Equal(t, uint32(50), r.Level)
}

func TestRead_ChargeAttributes(t *testing.T) {
	root := writeUevent(t, "BAT1", chargeUevent)

	src, err := Open(root, "BAT1", false)
	require.NoError(t, err)
	r, err := src.Read()
	require.NoError(t, err)
	assert.Equal(t, Reading{Level: 90, Status: StatusCharging}, r)
}

func TestOpen_MissingAttributes(t *testing.T) {
	root := writeUevent(t, "BAT0", "POWER_SUPPLY_STATUS=Full\nPOWER_SUPPLY_ENERGY_NOW=1\n")

	_, err := Open(root, "BAT0", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to find the required attributes")
}

func TestOpen_MissingBattery(t *testing.T) {
	_, err := Open(t.TempDir(), "BAT9", true)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRead_MissingStatus(t *testing.T) {
	root := writeUevent(t, "BAT0", energyUevent)
	src, err := Open(root, "BAT0", true)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(src.Path(), []byte("POWER_SUPPLY_ENERGY_FULL_DESIGN=10\nPOWER_SUPPLY_ENERGY_NOW=5\n"), 0o644))
	_, err = src.Read()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to parse the required attributes")
}

func TestRead_ZeroCapacity(t *testing.T) {
	root := writeUevent(t, "BAT0", `POWER_SUPPLY_STATUS=Unknown
POWER_SUPPLY_ENERGY_FULL_DESIGN=0
POWER_SUPPLY_ENERGY_FULL=0
POWER_SUPPLY_ENERGY_NOW=0
`)
	src, err := Open(root, "BAT0", true)
	require.NoError(t, err)
	_, err = src.Read()
	assert.ErrorIs(t, err, ErrZeroCapacity)
}

func TestMachineTransitions(t *testing.T) {
	th := Thresholds{Low: 30, Critical: 10}
	tests := []struct {
		name   string
		from   []Reading // readings that drive the machine into the start state
		input  Reading
		want   State
		change bool
	}{
		{name: "discharging stays", input: Reading{50, StatusDischarging}, want: Discharging},
		{name: "discharging to charging", input: Reading{50, StatusCharging}, want: Charging, change: true},
		{name: "discharging to full", input: Reading{100, StatusFull}, want: Full, change: true},
		{name: "discharging to low", input: Reading{30, StatusDischarging}, want: Low, change: true},
		{name: "discharging to critical", input: Reading{10, StatusDischarging}, want: Critical, change: true},
		{name: "discharging ignores unknown status", input: Reading{5, "Unknown"}, want: Discharging},

		{name: "charging to full", from: []Reading{{50, StatusCharging}}, input: Reading{100, StatusFull}, want: Full, change: true},
		{name: "charging to discharging", from: []Reading{{50, StatusCharging}}, input: Reading{50, StatusDischarging}, want: Discharging, change: true},
		{name: "charging to low", from: []Reading{{50, StatusCharging}}, input: Reading{25, StatusDischarging}, want: Low, change: true},
		{name: "charging to critical", from: []Reading{{50, StatusCharging}}, input: Reading{5, StatusDischarging}, want: Critical, change: true},
		{name: "charging stays", from: []Reading{{50, StatusCharging}}, input: Reading{60, StatusCharging}, want: Charging},

		{name: "full to charging", from: []Reading{{100, StatusFull}}, input: Reading{99, StatusCharging}, want: Charging, change: true},
		{name: "full to discharging", from: []Reading{{100, StatusFull}}, input: Reading{5, StatusDischarging}, want: Discharging, change: true},
		{name: "full stays", from: []Reading{{100, StatusFull}}, input: Reading{100, "Not charging"}, want: Full},

		{name: "low to charging", from: []Reading{{20, StatusDischarging}}, input: Reading{20, StatusCharging}, want: Charging, change: true},
		{name: "low to critical", from: []Reading{{20, StatusDischarging}}, input: Reading{10, StatusDischarging}, want: Critical, change: true},
		{name: "low stays", from: []Reading{{20, StatusDischarging}}, input: Reading{15, StatusDischarging}, want: Low},
		{name: "low ignores full", from: []Reading{{20, StatusDischarging}}, input: Reading{100, StatusFull}, want: Low},

		{name: "critical to charging", from: []Reading{{5, StatusDischarging}}, input: Reading{5, StatusCharging}, want: Charging, change: true},
		{name: "critical stays", from: []Reading{{5, StatusDischarging}}, input: Reading{1, StatusDischarging}, want: Critical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine()
			for _, r := range tt.from {
				m.Update(r, th, nil)
			}

			var entered []State
			got, changed := m.Update(tt.input, th, func(s State) { entered = append(entered, s) })
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.change, changed)
			assert.Equal(t, tt.want, m.State())
			if tt.change {
				assert.Equal(t, []State{tt.want}, entered)
			} else {
				assert.Empty(t, entered)
			}
		})
	}
}

func TestMachineStartsDischargingSilently(t *testing.T) {
	m := NewMachine()
	assert.Equal(t, Discharging, m.State())
}

func TestParseState(t *testing.T) {
	s, err := ParseState("Critical")
	require.NoError(t, err)
	assert.Equal(t, Critical, s)
	_, err = ParseState("empty")
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	th := Thresholds{Low: 30, Critical: 10}
	assert.Equal(t, Charging, Classify(Reading{Level: 5, Status: StatusCharging}, th))
	assert.Equal(t, Full, Classify(Reading{Level: 100, Status: StatusFull}, th))
	assert.Equal(t, Critical, Classify(Reading{Level: 10, Status: StatusDischarging}, th))
	assert.Equal(t, Low, Classify(Reading{Level: 30, Status: StatusDischarging}, th))
	assert.Equal(t, Discharging, Classify(Reading{Level: 31, Status: "Not charging"}, th))
}
