package config_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/archsim/ssdsim/config"
	"github.com/archsim/ssdsim/simerr"
)

var _ = Describe("Config.Validate", func() {
	var cfg *config.Config

	BeforeEach(func() {
		cfg = config.Defaults()
	})

	It("accepts the defaults", func() {
		Expect(cfg.Validate()).To(Succeed())
	})

	It("rejects a non-positive host_system.max_index", func() {
		cfg.HostSystem.MaxIndex = 0

		err := cfg.Validate()
		Expect(err).To(HaveOccurred())

		var simErr *simerr.Error
		Expect(err).To(BeAssignableToTypeOf(simErr))
		Expect(err.(*simerr.Error).Kind).To(Equal(simerr.ConfigurationError))
		Expect(err.(*simerr.Error).Code).To(Equal("max_index"))
	})

	It("rejects cache geometry that does not divide evenly into sets", func() {
		cfg.Cache.SizeKB = 33
		cfg.Cache.LineSize = 64
		cfg.Cache.Associativity = 5

		err := cfg.Validate()
		Expect(err).To(HaveOccurred())
		Expect(err.(*simerr.Error).Code).To(Equal("cache_geometry"))
	})

	It("rejects a dram bank count that does not divide into bank groups", func() {
		cfg.DRAM.NumBanks = 5
		cfg.DRAM.NumBankGroups = 2

		err := cfg.Validate()
		Expect(err).To(HaveOccurred())
		Expect(err.(*simerr.Error).Code).To(Equal("dram_geometry"))
	})

	It("rejects a pcie generation outside [1,7]", func() {
		cfg.PCIe.Generation = 8

		err := cfg.Validate()
		Expect(err).To(HaveOccurred())
		Expect(err.(*simerr.Error).Code).To(Equal("pcie_generation"))
	})

	It("rejects a non-positive traffic_generator.num_transactions", func() {
		cfg.TrafficGen.NumTransactions = 0

		err := cfg.Validate()
		Expect(err).To(HaveOccurred())
		Expect(err.(*simerr.Error).Code).To(Equal("num_transactions"))
	})
})
