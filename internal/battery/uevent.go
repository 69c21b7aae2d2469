package battery

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	DefaultSysPath = "/sys/class/power_supply/"
	DefaultName    = "BAT0"

	ueventFile          = "uevent"
	powerSupply         = "POWER_SUPPLY"
	chargePrefix        = "CHARGE"
	energyPrefix        = "ENERGY"
	fullAttribute       = "FULL"
	fullDesignAttribute = "FULL_DESIGN"
	nowAttribute        = "NOW"
	statusAttribute     = "POWER_SUPPLY_STATUS"
)

// Status values reported by the kernel in POWER_SUPPLY_STATUS.
const (
	StatusCharging    = "Charging"
	StatusDischarging = "Discharging"
	StatusFull        = "Full"
)

var ErrZeroCapacity = errors.New("battery reports zero capacity")

// Reading is one sample of the battery.
type Reading struct {
	// Level is the charge in percent of capacity.
	Level  uint32
	Status string
}

// Source reads one battery's uevent file.
type Source struct {
	path     string
	nowAttr  string
	fullAttr string
}

// Open locates name under sysPath and settles on the ENERGY or CHARGE
// attribute family. fullDesign selects FULL_DESIGN over FULL as capacity.
func Open(sysPath, name string, fullDesign bool) (*Source, error) {
	if sysPath == "" {
		sysPath = DefaultSysPath
	}
	if name == "" {
		name = DefaultName
	}
	path := filepath.Join(sysPath, name, ueventFile)

	prefix, err := findAttributePrefix(path)
	if err != nil {
		return nil, err
	}
	capacity := fullAttribute
	if fullDesign {
		capacity = fullDesignAttribute
	}
	return &Source{
		path:     path,
		nowAttr:  strings.Join([]string{powerSupply, prefix, nowAttribute}, "_"),
		fullAttr: strings.Join([]string{powerSupply, prefix, capacity}, "_"),
	}, nil
}

func (s *Source) Path() string { return s.path }

func findAttributePrefix(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	for _, prefix := range []string{energyPrefix, chargePrefix} {
		if hasAttributes(content, prefix) {
			return prefix, nil
		}
	}
	return "", fmt.Errorf("unable to find the required attributes in %s", path)
}

func hasAttributes(content []byte, prefix string) bool {
	for _, attr := range []string{fullDesignAttribute, fullAttribute, nowAttribute} {
		key := powerSupply + "_" + prefix + "_" + attr + "="
		if !bytes.Contains(content, []byte(key)) {
			return false
		}
	}
	return true
}

// Read samples the battery.
func (s *Source) Read() (Reading, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return Reading{}, err
	}
	defer f.Close()

	var (
		now, full         int64
		haveNow, haveFull bool
		status            string
		haveStatus        bool
	)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), "=")
		if !ok {
			continue
		}
		switch {
		case !haveNow && key == s.nowAttr:
			now, haveNow = parseInt(value)
		case !haveFull && key == s.fullAttr:
			full, haveFull = parseInt(value)
		case !haveStatus && key == statusAttribute:
			status, haveStatus = value, true
		}
	}
	if err := sc.Err(); err != nil {
		return Reading{}, err
	}
	if !haveNow || !haveFull || !haveStatus {
		return Reading{}, fmt.Errorf("unable to parse the required attributes in %s", s.path)
	}
	if full <= 0 {
		return Reading{}, fmt.Errorf("%w: %s", ErrZeroCapacity, s.path)
	}
	if now < 0 {
		now = 0
	}
	return Reading{Level: uint32(100 * now / full), Status: status}, nil
}

func parseInt(s string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return v, err == nil
}
