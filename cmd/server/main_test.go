package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	app "github.com/okian/fedagg/internal/app"
	"github.com/okian/fedagg/internal/config"
	"github.com/okian/fedagg/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("FEDAGG_ADDR", ":8080")
			_ = os.Setenv("FEDAGG_CLIPPING_NORM", "1.0")
			defer func() {
				_ = os.Unsetenv("FEDAGG_ADDR")
				_ = os.Unsetenv("FEDAGG_CLIPPING_NORM")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.ClippingNorm, convey.ShouldEqual, 1.0)
			})
		})

		convey.Convey("When testing invalid configuration", func() {
			_ = os.Setenv("FEDAGG_ADDR", "")
			defer func() { _ = os.Unsetenv("FEDAGG_ADDR") }()

			convey.Convey("Then configuration loading should fail", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestNewHandler(t *testing.T) {
	convey.Convey("Given a handler wired to a started service", t, func() {
		ctx := context.Background()
		svc := app.New()
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		srv := httptest.NewServer(newHandler(ctx, svc))
		defer srv.Close()

		convey.Convey("When posting a round", func() {
			resp, err := http.Post(srv.URL+"/aggregate", "application/json", strings.NewReader(`[
				{"client_id": "a", "num_examples": 10, "weights": [3, 4]},
				{"client_id": "b", "num_examples": 30, "weights": [0, 0]}
			]`))
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = resp.Body.Close() }()

			convey.Convey("Then the aggregated model is returned", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				var out model.AggregatedModel
				convey.So(json.NewDecoder(resp.Body).Decode(&out), convey.ShouldBeNil)
				convey.So(out.ModelHash, convey.ShouldEqual, "f315c226b60dcb618eb0884f54b391ac2dd907817587b0476f3d724e0d74dcde")
			})
		})

		convey.Convey("When fetching the auxiliary routes", func() {
			for _, path := range []string{"/healthz", "/stats", "/openapi.yaml"} {
				resp, err := http.Get(srv.URL + path)
				convey.So(err, convey.ShouldBeNil)
				_ = resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("When the metrics have been refreshed", func() {
			updateSystemMetrics()
			resp, err := http.Get(srv.URL + "/healthz")
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = resp.Body.Close() }()

			convey.Convey("Then system gauges are exposed", func() {
				body, err := io.ReadAll(resp.Body)
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(body), convey.ShouldContainSubstring, "system_goroutine_count")
			})
		})
	})
}

func TestSystemMetricsUpdater(t *testing.T) {
	convey.Convey("Given a short-lived context", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		convey.Convey("Then the updater returns when it is done", func() {
			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		})
	})
}
