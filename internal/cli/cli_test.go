package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/fedagg/internal/cli"
	"github.com/okian/fedagg/internal/domain/aggregation"
	"github.com/okian/fedagg/internal/domain/model"
	"github.com/okian/fedagg/internal/loader"
	. "github.com/smartystreets/goconvey/convey"
)

const scenario = `[
	{"client_id": "a", "num_examples": 10, "weights": [3, 4]},
	{"client_id": "b", "num_examples": 30, "weights": [0, 0]}
]`

const scenarioHash = "f315c226b60dcb618eb0884f54b391ac2dd907817587b0476f3d724e0d74dcde"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCLI(args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := cli.NewCommand()
	cmd.Writer = &stdout
	cmd.ErrWriter = &stderr
	err := cmd.Run(context.Background(), append([]string{"fedagg"}, args...))
	return stdout.String(), err
}

func readModel(path string) model.AggregatedModel {
	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	var m model.AggregatedModel
	if err := json.Unmarshal(data, &m); err != nil {
		panic(err)
	}
	return m
}

func TestCommand(t *testing.T) {
	Convey("Given an update file", t, func() {
		dir := t.TempDir()
		in := writeFile(t, dir, "updates.json", scenario)
		out := filepath.Join(dir, "model.json")

		Convey("When running with default flags", func() {
			stdout, err := runCLI("--updates", in, "--output", out)

			Convey("Then the model is written with its digest", func() {
				So(err, ShouldBeNil)
				So(stdout, ShouldContainSubstring, "Aggregated 2 clients")
				m := readModel(out)
				So(m.NumClients, ShouldEqual, 2)
				So(m.ModelHash, ShouldEqual, scenarioHash)
				So(m.Weights[0], ShouldAlmostEqual, 0.3, 1e-12)
				So(m.Weights[1], ShouldAlmostEqual, 0.4, 1e-12)
			})
		})

		Convey("When clipping is disabled by flag", func() {
			_, err := runCLI("--updates", in, "--output", out, "--clip", "0")

			Convey("Then the plain weighted mean is written", func() {
				So(err, ShouldBeNil)
				m := readModel(out)
				So(m.Weights[0], ShouldAlmostEqual, 0.75, 1e-12)
				So(m.Weights[1], ShouldAlmostEqual, 1.0, 1e-12)
			})
		})

		Convey("When the clipping norm comes from the environment", func() {
			_ = os.Setenv("FEDAGG_CLIPPING_NORM", "0")
			defer func() { _ = os.Unsetenv("FEDAGG_CLIPPING_NORM") }()

			_, envErr := runCLI("--updates", in, "--output", out)
			envModel := readModel(out)
			_, flagErr := runCLI("--updates", in, "--output", out, "--clip", "2")
			flagModel := readModel(out)

			Convey("Then env applies unless the flag is set", func() {
				So(envErr, ShouldBeNil)
				So(flagErr, ShouldBeNil)
				So(envModel.Weights[0], ShouldAlmostEqual, 0.75, 1e-12)
				So(flagModel.ModelHash, ShouldEqual, scenarioHash)
			})
		})

		Convey("When writing YAML", func() {
			yamlOut := filepath.Join(dir, "model.yaml")
			_, err := runCLI("--updates", in, "--output", yamlOut, "--format", "yaml")

			Convey("Then the YAML carries the same digest", func() {
				So(err, ShouldBeNil)
				data, readErr := os.ReadFile(yamlOut)
				So(readErr, ShouldBeNil)
				So(string(data), ShouldContainSubstring, "model_hash: "+scenarioHash)
			})
		})

		Convey("When seeded noise is requested twice", func() {
			_, err1 := runCLI("--updates", in, "--output", out, "--noise", "0.1", "--seed", "9")
			first := readModel(out)
			_, err2 := runCLI("--updates", in, "--output", out, "--noise", "0.1", "--seed", "9")
			second := readModel(out)

			Convey("Then both runs agree and differ from the noiseless digest", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(first.ModelHash, ShouldEqual, second.ModelHash)
				So(first.ModelHash, ShouldNotEqual, scenarioHash)
			})
		})

		Convey("When sharding is requested", func() {
			_, err := runCLI("--updates", in, "--output", out, "--shards", "4")

			Convey("Then the result is unchanged", func() {
				So(err, ShouldBeNil)
				So(readModel(out).ModelHash, ShouldEqual, scenarioHash)
			})
		})
	})
}

func TestCommandFailures(t *testing.T) {
	Convey("Given failing invocations", t, func() {
		dir := t.TempDir()
		out := filepath.Join(dir, "model.json")

		Convey("When a required flag is missing", func() {
			_, err := runCLI("--output", out)

			Convey("Then the command fails", func() {
				So(err, ShouldNotBeNil)
				So(strings.ToLower(err.Error()), ShouldContainSubstring, "updates")
			})
		})

		Convey("When the update file does not exist", func() {
			_, err := runCLI("--updates", filepath.Join(dir, "missing.json"), "--output", out)

			Convey("Then a read error is returned", func() {
				So(errors.Is(err, loader.ErrReadUpdates), ShouldBeTrue)
			})
		})

		Convey("When the update file is malformed", func() {
			in := writeFile(t, dir, "bad.json", `[{"client_id": "a"}]`)
			_, err := runCLI("--updates", in, "--output", out)

			Convey("Then a malformed error is returned", func() {
				So(errors.Is(err, loader.ErrMalformedUpdates), ShouldBeTrue)
			})
		})

		Convey("When dimensions disagree", func() {
			in := writeFile(t, dir, "mismatch.json", `[
				{"client_id": "a", "num_examples": 1, "weights": [1, 2, 3]},
				{"client_id": "b", "num_examples": 1, "weights": [1, 2, 3, 4]}
			]`)
			_, err := runCLI("--updates", in, "--output", out)

			Convey("Then no output is written", func() {
				So(errors.Is(err, aggregation.ErrDimensionMismatch), ShouldBeTrue)
				_, statErr := os.Stat(out)
				So(os.IsNotExist(statErr), ShouldBeTrue)
			})
		})

		Convey("When the update list is empty", func() {
			in := writeFile(t, dir, "empty.json", `[]`)
			_, err := runCLI("--updates", in, "--output", out)

			Convey("Then ErrEmptyInput is returned", func() {
				So(errors.Is(err, aggregation.ErrEmptyInput), ShouldBeTrue)
			})
		})

		Convey("When the clipping norm is negative", func() {
			in := writeFile(t, dir, "ok.json", scenario)
			_, err := runCLI("--updates", in, "--output", out, "--clip=-1")

			Convey("Then ErrInvalidConfig is returned", func() {
				So(errors.Is(err, aggregation.ErrInvalidConfig), ShouldBeTrue)
			})
		})

		Convey("When the format is unknown", func() {
			in := writeFile(t, dir, "ok.json", scenario)
			_, err := runCLI("--updates", in, "--output", out, "--format", "xml")

			Convey("Then ErrUnknownFormat is returned", func() {
				So(errors.Is(err, loader.ErrUnknownFormat), ShouldBeTrue)
			})
		})
	})
}
