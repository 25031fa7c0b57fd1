package config

// PricingConfig holds the global fare parameters. Monetary values are integer
// minor units (paise).
type PricingConfig struct {
	BaseFare        int64   `yaml:"base_fare"`
	PerKMRate       int64   `yaml:"per_km_rate"`
	PerMinuteRate   int64   `yaml:"per_minute_rate"`
	BookingFee      int64   `yaml:"booking_fee"`
	MinimumFare     int64   `yaml:"minimum_fare"`
	SurgeMultiplier float64 `yaml:"surge_multiplier"`
	Currency        string  `yaml:"currency"`
}

func loadPricingConfig() *PricingConfig {
	return &PricingConfig{
		BaseFare:        getEnvAsInt64("PRICING_BASE_FARE", 3000),
		PerKMRate:       getEnvAsInt64("PRICING_PER_KM_RATE", 1200),
		PerMinuteRate:   getEnvAsInt64("PRICING_PER_MINUTE_RATE", 150),
		BookingFee:      getEnvAsInt64("PRICING_BOOKING_FEE", 500),
		MinimumFare:     getEnvAsInt64("PRICING_MINIMUM_FARE", 5000),
		SurgeMultiplier: getEnvAsFloat64("PRICING_SURGE_MULTIPLIER", 1.0),
		Currency:        getEnv("PRICING_CURRENCY", "INR"),
	}
}
