package backfill

import "fmt"

// MetricKey identifies one supported logical energy counter.
type MetricKey string

// Supported metric keys. The set is closed: every key carries its raw
// source field, statistic key and unit as data, checked at load time.
const (
	MetricGridImport       MetricKey = "grid_import"
	MetricGridExport       MetricKey = "grid_export"
	MetricSolarGenerated   MetricKey = "solar_generated"
	MetricHomeUsage        MetricKey = "home_usage"
	MetricBatteryCharged   MetricKey = "battery_charged"
	MetricBatteryDischarged MetricKey = "battery_discharged"
)

// MetricSpec maps a logical metric to its raw source field and statistic
// identity. Immutable configuration, loaded once per metric.
type MetricSpec struct {
	Key          MetricKey
	Field        string
	StatisticKey string
	FriendlyName string
	Unit         string
}

var supportedMetrics = []MetricSpec{
	{Key: MetricGridImport, Field: "from_grid", StatisticKey: "grid_import", FriendlyName: "Grid Imported", Unit: "kWh"},
	{Key: MetricGridExport, Field: "to_grid", StatisticKey: "grid_export", FriendlyName: "Grid Exported", Unit: "kWh"},
	{Key: MetricSolarGenerated, Field: "solar", StatisticKey: "solar_generated", FriendlyName: "Solar Generated", Unit: "kWh"},
	{Key: MetricHomeUsage, Field: "home", StatisticKey: "home_usage", FriendlyName: "Home Usage", Unit: "kWh"},
	{Key: MetricBatteryCharged, Field: "to_pw", StatisticKey: "battery_charged", FriendlyName: "Battery Charged", Unit: "kWh"},
	{Key: MetricBatteryDischarged, Field: "from_pw", StatisticKey: "battery_discharged", FriendlyName: "Battery Discharged", Unit: "kWh"},
}

// SupportedMetrics returns all metric specs in stable order.
func SupportedMetrics() []MetricSpec {
	out := make([]MetricSpec, len(supportedMetrics))
	copy(out, supportedMetrics)
	return out
}

// LookupMetric resolves a metric key to its spec.
func LookupMetric(key MetricKey) (MetricSpec, error) {
	for _, spec := range supportedMetrics {
		if spec.Key == key {
			return spec, nil
		}
	}
	return MetricSpec{}, fmt.Errorf("%w: %s", ErrUnknownMetric, key)
}

// ResolveMetrics maps requested keys to specs, defaulting to the full
// supported set when no keys are given.
func ResolveMetrics(keys []MetricKey) ([]MetricSpec, error) {
	if len(keys) == 0 {
		return SupportedMetrics(), nil
	}
	specs := make([]MetricSpec, 0, len(keys))
	for _, key := range keys {
		spec, err := LookupMetric(key)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
