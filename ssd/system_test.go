package ssd_test

import (
	"testing"

	"github.com/archsim/ssdsim/config"
	"github.com/archsim/ssdsim/sim"
	"github.com/archsim/ssdsim/ssd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallConfig() *config.Config {
	cfg := config.Defaults()
	cfg.TrafficGen.NumTransactions = 20
	cfg.TrafficGen.MaxOutstanding = 4
	cfg.HostSystem.MaxIndex = 4
	cfg.Flash.NumChannels = 2
	cfg.Flash.DiesPerChannel = 1
	cfg.Flash.PagesPerBlock = 4
	cfg.Flash.BlocksPerDie = 4
	cfg.Flash.NumPlanes = 1

	return cfg
}

func TestSystemDrainsAllTransactionsAndTerminates(t *testing.T) {
	s := ssd.New(smallConfig(), 0, nil)

	s.Run()

	require.Equal(t, int64(20), s.Cache.Hits()+s.Cache.Misses())
	assert.Equal(t, s.Cache.Misses(), s.DRAM.TotalRequests())
	assert.Empty(t, s.Errors())
	assert.Greater(t, s.Now(), sim.Time(0))
}

func TestSystemIsDeterministicAcrossRunsWithSameSeed(t *testing.T) {
	cfg1 := smallConfig()
	cfg2 := smallConfig()

	s1 := ssd.New(cfg1, 0, nil)
	s1.Run()

	s2 := ssd.New(cfg2, 0, nil)
	s2.Run()

	assert.Equal(t, s1.Now(), s2.Now())
	assert.Equal(t, s1.DRAM.TotalRequests(), s2.DRAM.TotalRequests())
	assert.Equal(t, s1.Flash.Writes(), s2.Flash.Writes())
}
