package ocr

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"
)

type call struct {
	name string
	args []string
}

// fakeRunner records calls and delegates to handle.
type fakeRunner struct {
	mu     sync.Mutex
	calls  []call
	handle func(name string, args []string) ([]byte, error)
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{name: name, args: append([]string(nil), args...)})
	f.mu.Unlock()
	out, err := f.handle(name, args)
	if err != nil {
		return nil, []byte("boom"), err
	}
	return out, nil, nil
}

func (f *fakeRunner) callsTo(name string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		v := uint8(x * 255 / (w - 1))
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func newTestExtractor(t *testing.T, r Runner) *Extractor {
	t.Helper()
	return NewExtractor(Config{TempDir: t.TempDir()}, zaptest.NewLogger(t)).WithRunner(r)
}

func TestExtractText_UnsupportedExtension(t *testing.T) {
	r := &fakeRunner{handle: func(string, []string) ([]byte, error) {
		t.Fatal("no command expected")
		return nil, nil
	}}
	e := newTestExtractor(t, r)
	text, err := e.ExtractText(context.Background(), "/does/not/matter.docx", "docx")
	if err != nil || text != "" {
		t.Errorf("ExtractText = %q, %v; want empty, nil", text, err)
	}
}

func TestExtractImage(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "scan.png")
	writePNG(t, src, gradient(64, 8))

	var sawBinary bool
	r := &fakeRunner{handle: func(name string, args []string) ([]byte, error) {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, err
		}
		defer f.Close()
		img, err := png.Decode(f)
		if err != nil {
			return nil, err
		}
		if g, ok := img.(*image.Gray); ok {
			sawBinary = true
			for _, y := range g.Pix {
				if y != 0 && y != 255 {
					sawBinary = false
				}
			}
		}
		return []byte("Heart Rate: 72 bpm\n"), nil
	}}
	e := newTestExtractor(t, r)

	res, err := e.Extract(context.Background(), src)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Text != "Heart Rate: 72 bpm\n" || res.Method != "image-ocr" || res.SourceType != "IMAGE" {
		t.Errorf("result = %+v", res)
	}
	if !sawBinary {
		t.Error("tesseract did not receive a binarized grayscale image")
	}

	calls := r.callsTo("tesseract")
	if len(calls) != 1 {
		t.Fatalf("tesseract calls = %d, want 1", len(calls))
	}
	args := strings.Join(calls[0].args, " ")
	if !strings.Contains(args, "stdout -l eng --oem 3 --psm 6") {
		t.Errorf("tesseract args = %q", args)
	}
	if _, err := os.Stat(calls[0].args[0]); !os.IsNotExist(err) {
		t.Errorf("preprocessed image not cleaned up: %v", err)
	}
}

func TestExtractImage_Undecodable(t *testing.T) {
	src := filepath.Join(t.TempDir(), "broken.jpg")
	if err := os.WriteFile(src, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := &fakeRunner{handle: func(string, []string) ([]byte, error) { return nil, errors.New("unexpected") }}
	res, err := newTestExtractor(t, r).Extract(context.Background(), src)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Text != "" || len(res.Warnings) == 0 {
		t.Errorf("result = %+v, want empty text with warning", res)
	}
}

func TestExtract_MissingFiles(t *testing.T) {
	r := &fakeRunner{handle: func(string, []string) ([]byte, error) { return nil, nil }}
	e := newTestExtractor(t, r)
	for _, p := range []string{"/no/such/report.pdf", "/no/such/report.png"} {
		if _, err := e.Extract(context.Background(), p); err == nil {
			t.Errorf("Extract(%s) succeeded, want error", p)
		}
	}
}

func TestExtractPDF_FallsBackToOCR(t *testing.T) {
	src := filepath.Join(t.TempDir(), "scan.pdf")
	if err := os.WriteFile(src, []byte("this is not really a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := &fakeRunner{handle: func(name string, args []string) ([]byte, error) {
		switch name {
		case "pdftoppm":
			prefix := args[len(args)-1]
			for _, n := range []string{"1", "2"} {
				if err := os.WriteFile(prefix+"-"+n+".png", []byte("png"), 0o644); err != nil {
					return nil, err
				}
			}
			return nil, nil
		case "tesseract":
			if strings.HasSuffix(args[0], "-1.png") {
				return []byte("Blood Pressure 130/85\n"), nil
			}
			return []byte("Pulse 80\n"), nil
		}
		return nil, errors.New("unexpected command " + name)
	}}

	res, err := newTestExtractor(t, r).Extract(context.Background(), src)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Text != "Blood Pressure 130/85\nPulse 80" {
		t.Errorf("text = %q", res.Text)
	}
	if res.Pages != 2 || res.Method != "pdf-ocr" {
		t.Errorf("pages = %d method = %s", res.Pages, res.Method)
	}

	pp := r.callsTo("pdftoppm")
	if len(pp) != 1 || !strings.Contains(strings.Join(pp[0].args, " "), "-r 300 -png") {
		t.Errorf("pdftoppm calls = %+v", pp)
	}
	for _, c := range r.callsTo("tesseract") {
		if strings.Contains(strings.Join(c.args, " "), "--psm") {
			t.Errorf("page OCR should use default tesseract options, got %v", c.args)
		}
	}
}

func TestPdfToOCR_SinglePage(t *testing.T) {
	r := &fakeRunner{handle: func(name string, args []string) ([]byte, error) {
		if name == "pdftoppm" {
			return nil, os.WriteFile(args[len(args)-1]+"-3.png", []byte("png"), 0o644)
		}
		return []byte("  SpO2 97%  "), nil
	}}
	e := newTestExtractor(t, r)

	text, pages, _, err := e.pdfToOCR(context.Background(), "doc.pdf", 3)
	if err != nil {
		t.Fatalf("pdfToOCR: %v", err)
	}
	if text != "SpO2 97%" || pages != 1 {
		t.Errorf("text = %q pages = %d", text, pages)
	}
	args := strings.Join(r.callsTo("pdftoppm")[0].args, " ")
	if !strings.Contains(args, "-f 3 -l 3") {
		t.Errorf("pdftoppm args = %q", args)
	}
}

func TestPdfToOCR_RenderFailure(t *testing.T) {
	r := &fakeRunner{handle: func(string, []string) ([]byte, error) { return nil, errors.New("exit 1") }}
	_, _, warns, err := newTestExtractor(t, r).pdfToOCR(context.Background(), "doc.pdf", 1)
	if err == nil || len(warns) == 0 {
		t.Errorf("err = %v warns = %v; want error with warning", err, warns)
	}
}

func TestBinarize(t *testing.T) {
	img := image.NewRGBA(image.Rect(10, 10, 13, 11))
	img.Set(10, 10, color.RGBA{R: 150, G: 150, B: 150, A: 255})
	img.Set(11, 10, color.RGBA{R: 151, G: 151, B: 151, A: 255})
	img.Set(12, 10, color.RGBA{R: 255, G: 0, B: 0, A: 255})

	g := Binarize(img, 150)
	if g.Bounds().Dx() != 3 || g.Bounds().Dy() != 1 {
		t.Fatalf("bounds = %v", g.Bounds())
	}
	want := []uint8{0, 255, 0}
	for i, w := range want {
		if g.Pix[i] != w {
			t.Errorf("pixel %d = %d, want %d", i, g.Pix[i], w)
		}
	}
}

func TestNewExtractor_Threshold(t *testing.T) {
	zero, custom := uint8(0), uint8(90)
	cases := []struct {
		name string
		in   *uint8
		want uint8
	}{
		{"unset", nil, DefaultThreshold},
		{"explicit zero", &zero, 0},
		{"custom", &custom, 90},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := NewExtractor(Config{Threshold: tc.in, TempDir: t.TempDir()}, zaptest.NewLogger(t))
			if e.threshold != tc.want {
				t.Errorf("threshold = %d, want %d", e.threshold, tc.want)
			}
		})
	}
}

func TestMeanTSVConfidence(t *testing.T) {
	tsv := "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
		"1\t1\t0\t0\t0\t0\t0\t0\t100\t100\t-1\t\n" +
		"5\t1\t1\t1\t1\t1\t1\t1\t10\t10\t90\tHeart\n" +
		"5\t1\t1\t1\t1\t2\t1\t1\t10\t10\t70\tRate\n"
	if got := meanTSVConfidence(tsv); got < 0.79 || got > 0.81 {
		t.Errorf("meanTSVConfidence = %v, want 0.8", got)
	}
	if got := meanTSVConfidence(""); got != 0 {
		t.Errorf("empty = %v", got)
	}
}
