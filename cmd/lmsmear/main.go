// Command lmsmear builds the smear sidecar for a compiled trigram model
// and writes it to the -out path, so consumers can load it with
// slm.ReadSmearInfo or SmearEngine.LoadOrBuildSmearInfo instead of
// recomputing it on every startup.
// Adapted from kho-fslm's cmd/compile shape (flag + easy.ParseFlagsAndArgs
// + glog.Fatal on error), applied to slm.SmearEngine instead of
// fslm.FromARPA.
package main

import (
	"github.com/golang/glog"
	"github.com/kho/easy"

	"github.com/kastnerkyle/cmusphinx"
)

func main() {
	var args struct {
		Model string `name:"model" usage:"path to the compiled trigram model"`
		Out   string `name:"out" usage:"path to write the smear sidecar file"`
	}
	easy.ParseFlagsAndArgs(&args)

	opts := slm.DefaultOptions()
	loader, err := slm.Open(args.Model, opts)
	if err != nil {
		glog.Fatalf("loading model %s: %v", args.Model, err)
	}
	defer loader.Close()

	engine, err := slm.NewSmearEngine(loader)
	if err != nil {
		glog.Fatalf("building smear engine: %v", err)
	}

	glog.Infof("building smear took %v", easy.Timed(func() {
		if err := engine.BuildSmearInfo(); err != nil {
			glog.Fatalf("building smear info: %v", err)
		}
	}))

	if err := engine.WriteSmearInfo(args.Out); err != nil {
		glog.Fatalf("writing smear info to %s: %v", args.Out, err)
	}
	glog.Infof("wrote smear info to %s", args.Out)
}
