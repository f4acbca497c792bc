package storage

import (
	"bytes"
	"fmt"
)

const (
	probeKey       = "storage-test"
	probeUnit      = 1024
	probeMaxUnits  = 5 * 1024
	percentOfWhole = 100
)

// Info describes how much space the store uses.
type Info struct {
	TotalSize       int64   `json:"totalSize"`
	TasksSize       int64   `json:"tasksSize"`
	SettingsSize    int64   `json:"settingsSize"`
	DarkModeSize    int64   `json:"darkModeSize"`
	CategoriesSize  int64   `json:"categoriesSize"`
	AvailableSize   int64   `json:"availableSize"`
	UsagePercentage float64 `json:"usagePercentage"`
}

// Info reports per-key sizes and an estimate of the remaining capacity.
func (s *Store) Info() (Info, error) {
	var info Info
	sizes := map[string]*int64{
		KeyTasks:      &info.TasksSize,
		KeySettings:   &info.SettingsSize,
		KeyDarkMode:   &info.DarkModeSize,
		KeyCategories: &info.CategoriesSize,
	}
	for key, dst := range sizes {
		data, ok, err := s.kv.Get(key)
		if err != nil {
			return Info{}, fmt.Errorf("measure %s: %w", key, err)
		}
		if ok {
			*dst = int64(len(data))
		}
		info.TotalSize += *dst
	}

	info.AvailableSize = s.probeAvailable()
	if info.TotalSize > 0 {
		info.UsagePercentage = float64(info.TotalSize) / float64(info.TotalSize+info.AvailableSize) * percentOfWhole
	}
	return info, nil
}

// probeAvailable binary-searches the largest scratch value, in 1 KiB units
// up to 5 MiB, that the backend still accepts.
func (s *Store) probeAvailable() int64 {
	unit := bytes.Repeat([]byte("0"), probeUnit)
	var available int64
	low, high := 0, probeMaxUnits
	for low <= high {
		mid := (low + high) / 2
		if err := s.kv.Set(probeKey, bytes.Repeat(unit, mid)); err != nil {
			high = mid - 1
			continue
		}
		if err := s.kv.Remove(probeKey); err != nil {
			s.log.Warn("failed to remove capacity probe", "error", err)
		}
		available = int64(mid) * probeUnit
		low = mid + 1
	}
	return available
}
