package trafficgen

import "github.com/archsim/ssdsim/config"

// ApplyTemplate returns cfg with the parameters a named workload preset
// overrides applied on top. CUSTOM leaves cfg untouched.
func ApplyTemplate(cfg config.TrafficGen) config.TrafficGen {
	switch cfg.WorkloadTemplate {
	case config.Database:
		cfg.TrafficPattern = config.Poisson
		cfg.DelayMean = 20
		cfg.LocalityPercentage = 20
		cfg.WritePercentage = 35
		cfg.DatabyteValue = 8
	case config.WebServer:
		cfg.TrafficPattern = config.Burst
		cfg.BurstSize = 8
		cfg.BurstInterval = 200
		cfg.IdleTime = 5000
		cfg.LocalityPercentage = 10
		cfg.WritePercentage = 15
		cfg.DatabyteValue = 4
	case config.MLInference:
		cfg.TrafficPattern = config.Constant
		cfg.Interval = 500
		cfg.LocalityPercentage = 90
		cfg.WritePercentage = 5
		cfg.DatabyteValue = 64
	case config.IoTSensors:
		cfg.TrafficPattern = config.Exponential
		cfg.PoissonRate = 1.0 / 100000
		cfg.LocalityPercentage = 5
		cfg.WritePercentage = 90
		cfg.DatabyteValue = 4
	case config.Streaming:
		cfg.TrafficPattern = config.Normal
		cfg.DelayMean = 1000
		cfg.DelayStddev = 100
		cfg.LocalityPercentage = 95
		cfg.WritePercentage = 2
		cfg.DatabyteValue = 64
	}

	return cfg
}
