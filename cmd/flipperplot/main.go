// Command flipperplot renders a preset's release correction curves and a simulated flip to PNG.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/flipperlab/backend/internal/flipper"
	"github.com/flipperlab/backend/internal/presets"
	"github.com/flipperlab/backend/internal/table"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

func main() {
	name := flag.String("preset", "left-tricks", "built-in preset to plot")
	outDir := flag.String("out", "plots", "output directory")
	holdMs := flag.Int("hold", 150, "ms the solenoid stays energized")
	totalMs := flag.Int("ms", 400, "simulated ms")
	slope := flag.Float64("slope", 6.5, "table slope in degrees")
	flag.Parse()

	p, err := presets.NewStore(nil, nil, 0).Get(context.Background(), *name)
	if err != nil {
		log.Fatalf("preset %s: %v", *name, err)
	}

	if err := plotAngleTrace(*outDir, p, *slope, *holdMs, *totalMs); err != nil {
		log.Fatalf("angle trace: %v", err)
	}
	if p.Config.Correction != nil {
		if err := plotCorrection(*outDir, p); err != nil {
			log.Fatalf("correction curves: %v", err)
		}
	} else {
		log.Printf("preset %s has no correction curves", p.Name)
	}
	log.Printf("plots written to %s", *outDir)
}

// traceFlip fires the flipper at t=0, releases it at holdMs and samples angle and torque every ms.
func traceFlip(cfg flipper.Config, slope float64, holdMs, totalMs int) (angle, torque plotter.XYs) {
	t := table.New(table.Config{SlopeDegrees: slope, Flippers: []flipper.Config{cfg}})
	_ = t.SetSolenoid(0, true)

	angle = make(plotter.XYs, 0, totalMs)
	torque = make(plotter.XYs, 0, totalMs)
	for ms := 0; ms < totalMs; ms++ {
		if ms == holdMs {
			_ = t.SetSolenoid(0, false)
		}
		t.Step()
		f := t.Flippers[0]
		angle = append(angle, plotter.XY{X: float64(ms), Y: f.Movement.Angle * 180 / math.Pi})
		torque = append(torque, plotter.XY{X: float64(ms), Y: f.Actuation.CurTorque})
	}
	return angle, torque
}

func plotAngleTrace(outDir string, p *presets.Preset, slope float64, holdMs, totalMs int) error {
	angle, torque := traceFlip(p.Config, slope, holdMs, totalMs)

	pa := newPlot(fmt.Sprintf("%s: flip angle", p.Name), "time (ms)", "angle (deg)")
	if err := addLine(pa, angle, 0); err != nil {
		return err
	}
	if err := savePlotPNG(pa, 8, 5, filepath.Join(outDir, p.Name+"_angle.png")); err != nil {
		return err
	}

	pt := newPlot(fmt.Sprintf("%s: coil torque", p.Name), "time (ms)", "torque")
	if err := addLine(pt, torque, 1); err != nil {
		return err
	}
	return savePlotPNG(pt, 8, 5, filepath.Join(outDir, p.Name+"_torque.png"))
}

func sampleCurve(c flipper.Curve, from, to float64, n int) plotter.XYs {
	pts := make(plotter.XYs, n)
	for i := range pts {
		x := from + (to-from)*float64(i)/float64(n-1)
		pts[i] = plotter.XY{X: x, Y: c.At(x)}
	}
	return pts
}

func plotCorrection(outDir string, p *presets.Preset) error {
	cc := p.Config.Correction

	pp := newPlot(p.Name+": polarity correction", "position on arm (0 pivot, 1 tip)", "x velocity offset")
	if err := addLine(pp, sampleCurve(flipper.NewCurve(cc.Polarity), 0, 1.3, 200), 0); err != nil {
		return err
	}
	if err := savePlotPNG(pp, 8, 5, filepath.Join(outDir, p.Name+"_polarity.png")); err != nil {
		return err
	}

	pv := newPlot(p.Name+": velocity correction", "position on arm (0 pivot, 1 tip)", "velocity factor")
	if err := addLine(pv, sampleCurve(flipper.NewCurve(cc.Velocity), 0, 1.1, 200), 1); err != nil {
		return err
	}
	return savePlotPNG(pv, 8, 5, filepath.Join(outDir, p.Name+"_velocity.png"))
}

func newPlot(title, xlabel, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.X.Label.TextStyle.Font.Size = vg.Points(12)
	p.Y.Label.TextStyle.Font.Size = vg.Points(12)
	p.Add(plotter.NewGrid())
	return p
}

func addLine(p *plot.Plot, pts plotter.XYs, colorIdx int) error {
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.LineStyle.Width = vg.Points(2)
	line.LineStyle.Color = plotutil.Color(colorIdx)
	p.Add(line)
	return nil
}

func savePlotPNG(p *plot.Plot, widthIn, heightIn float64, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}
	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(widthIn)*vg.Inch, vg.Length(heightIn)*vg.Inch),
		vgimg.UseDPI(150),
	)
	p.Draw(draw.New(c))

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cannot create png: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	defer bw.Flush()

	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(bw); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	return nil
}
