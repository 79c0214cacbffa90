package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

// gathered returns the first sample value of the named family, or -1.
func gathered(registry *prometheus.Registry, name string) float64 {
	families, err := registry.Gather()
	if err != nil {
		return -1
	}
	for _, mf := range families {
		if mf.GetName() != name || len(mf.GetMetric()) == 0 {
			continue
		}
		m := mf.GetMetric()[0]
		switch {
		case m.GetCounter() != nil:
			return m.GetCounter().GetValue()
		case m.GetGauge() != nil:
			return m.GetGauge().GetValue()
		case m.GetHistogram() != nil:
			return float64(m.GetHistogram().GetSampleCount())
		}
	}
	return -1
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "fedagg")
				So(manager.subsystem, ShouldEqual, "aggregator")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.RecordAggregation(2, 3, 0.4)

			Convey("Then metric names should use the namespace and subsystem", func() {
				So(gathered(registry, "test_unit_aggregations_total"), ShouldEqual, 1)
				So(gathered(registry, "test_unit_vector_dimension"), ShouldEqual, 3)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given a manager on a private registry", t, func() {
		registry := prometheus.NewRegistry()
		manager := NewManager(WithPrometheusRegistry(registry))

		Convey("When recording aggregation metrics", func() {
			manager.RecordAggregation(10, 128, 1.5)
			manager.RecordAggregation(4, 64, 0.5)
			manager.RecordClippedUpdates(3)
			manager.RecordClippedUpdates(0)
			manager.RecordDuplicateClientIDs(1)
			manager.RecordNoisedAggregation()
			manager.RecordShardedAggregation()
			manager.RecordAggregationError("empty_input")

			Convey("Then counters and gauges should reflect them", func() {
				So(gathered(registry, "fedagg_aggregator_aggregations_total"), ShouldEqual, 2)
				So(gathered(registry, "fedagg_aggregator_vector_dimension"), ShouldEqual, 64)
				So(gathered(registry, "fedagg_aggregator_clients_per_aggregation"), ShouldEqual, 2)
				So(gathered(registry, "fedagg_aggregator_clipped_updates_total"), ShouldEqual, 3)
				So(gathered(registry, "fedagg_aggregator_duplicate_client_ids_total"), ShouldEqual, 1)
				So(gathered(registry, "fedagg_aggregator_noised_aggregations_total"), ShouldEqual, 1)
				So(gathered(registry, "fedagg_aggregator_sharded_aggregations_total"), ShouldEqual, 1)
				So(gathered(registry, "fedagg_aggregator_aggregation_errors_total"), ShouldEqual, 1)
			})
		})

		Convey("When recording HTTP metrics", func() {
			manager.RecordHTTPRequest("aggregate", "POST", "200", 2.5)

			Convey("Then the request counter should increase", func() {
				So(gathered(registry, "fedagg_aggregator_http_requests_total"), ShouldEqual, 1)
			})
		})
	})
}

func TestMetricsDisabled(t *testing.T) {
	Convey("Given a disabled manager", t, func() {
		registry := prometheus.NewRegistry()
		manager := NewManager(WithPrometheusRegistry(registry), WithMetricsEnabled(false))

		Convey("When recording", func() {
			manager.RecordAggregation(1, 1, 1)
			manager.RecordErrorByComponent("api", "bad_request")

			Convey("Then nothing should be observed", func() {
				So(gathered(registry, "fedagg_aggregator_aggregations_total"), ShouldEqual, 0)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global registry", t, func() {
		Convey("Then package-level recorders should not panic", func() {
			So(func() {
				RecordAggregation(2, 2, 0.1)
				RecordAggregationError("dimension_mismatch")
				RecordClippedUpdates(1)
				RecordDuplicateClientIDs(1)
				RecordNoisedAggregation()
				RecordShardedAggregation()
				RecordHTTPRequest("stats", "GET", "200", 0.2)
				RecordErrorByComponent("loader", "malformed")
				UpdateSystem(1024, 8, 0.3)
			}, ShouldNotPanic)
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
