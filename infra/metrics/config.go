package metrics

// Config defines settings for the metrics sinks.
type Config struct {
	PrometheusEnabled bool   `json:"prometheusEnabled"`
	PrometheusAddr    string `json:"prometheusAddr"`
	InfluxEnabled     bool   `json:"influxEnabled"`
	InfluxURL         string `json:"influxUrl"`
	InfluxToken       string `json:"influxToken"`
	InfluxOrg         string `json:"influxOrg"`
	InfluxBucket      string `json:"influxBucket"`
}

// SetDefaults fills the stock Prometheus listen address.
func (c *Config) SetDefaults() {
	if c.PrometheusAddr == "" {
		c.PrometheusAddr = ":9090"
	}
}
