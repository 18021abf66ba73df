package palette

import (
	"image"
	"image/color"
	"reflect"
	"testing"
)

// fillRect は画像の矩形領域を指定色で塗りつぶすテストヘルパー。
func fillRect(img *image.NRGBA, rect image.Rectangle, c color.NRGBA) {
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

// solidImage は単色画像を生成するテストヘルパー。
func solidImage(width, height int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	fillRect(img, img.Bounds(), c)
	return img
}

// TestExtractor_Extract_SolidColor は単色画像から量子化済みの1色が抽出されることをテストする。
func TestExtractor_Extract_SolidColor(t *testing.T) {
	extractor := NewExtractor(DefaultOptions())
	img := solidImage(100, 100, color.NRGBA{R: 200, G: 100, B: 50, A: 255})

	colors := extractor.Extract(img, 5)
	if len(colors) != 1 {
		t.Fatalf("expected 1 color, got %d: %v", len(colors), colors)
	}
	if colors[0] != "#C86432" {
		t.Errorf("expected '#C86432', got %q", colors[0])
	}
}

// TestExtractor_Extract_FrequencyOrder は出現頻度降順で色が並ぶことをテストする。
func TestExtractor_Extract_FrequencyOrder(t *testing.T) {
	extractor := NewExtractor(DefaultOptions())

	// 50x50: 上40行を支配色、下10行を少数色で塗る
	img := image.NewNRGBA(image.Rect(0, 0, 50, 50))
	fillRect(img, image.Rect(0, 0, 50, 40), color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	fillRect(img, image.Rect(0, 40, 50, 50), color.NRGBA{R: 50, G: 100, B: 200, A: 255})

	colors := extractor.Extract(img, 5)
	want := []string{"#C86432", "#3264C8"}
	if !reflect.DeepEqual(colors, want) {
		t.Errorf("expected %v, got %v", want, colors)
	}
}

// TestExtractor_Extract_QuantizationGroups は近似色が同一バケットにまとまることをテストする。
func TestExtractor_Extract_QuantizationGroups(t *testing.T) {
	extractor := NewExtractor(DefaultOptions())

	// (200,100,50)と(202,98,52)は量子化後どちらも#C86432になる
	img := image.NewNRGBA(image.Rect(0, 0, 50, 50))
	fillRect(img, image.Rect(0, 0, 50, 25), color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	fillRect(img, image.Rect(0, 25, 50, 50), color.NRGBA{R: 202, G: 98, B: 52, A: 255})

	colors := extractor.Extract(img, 5)
	if len(colors) != 1 {
		t.Fatalf("expected 1 merged color, got %d: %v", len(colors), colors)
	}
	if colors[0] != "#C86432" {
		t.Errorf("expected '#C86432', got %q", colors[0])
	}
}

// TestExtractor_Extract_TransparentPixelsIgnored は透明画像が空パレットになることをテストする。
func TestExtractor_Extract_TransparentPixelsIgnored(t *testing.T) {
	extractor := NewExtractor(DefaultOptions())
	img := solidImage(50, 50, color.NRGBA{R: 200, G: 100, B: 50, A: 0})

	colors := extractor.Extract(img, 5)
	if len(colors) != 0 {
		t.Errorf("expected empty palette for transparent image, got %v", colors)
	}
}

// TestExtractor_Extract_BrightnessFilter は純黒・純白のみの画像が空パレットになることをテストする。
func TestExtractor_Extract_BrightnessFilter(t *testing.T) {
	extractor := NewExtractor(DefaultOptions())

	tests := []struct {
		name  string
		pixel color.NRGBA
	}{
		{"純黒", color.NRGBA{R: 0, G: 0, B: 0, A: 255}},
		{"純白", color.NRGBA{R: 255, G: 255, B: 255, A: 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := solidImage(50, 50, tt.pixel)
			colors := extractor.Extract(img, 5)
			if len(colors) != 0 {
				t.Errorf("expected empty palette, got %v", colors)
			}
		})
	}
}

// TestExtractor_Extract_ClampsQuantizedChannel は量子化で255を超えるチャンネルが
// 250にクランプされ、常に6桁の16進表現になることをテストする。
func TestExtractor_Extract_ClampsQuantizedChannel(t *testing.T) {
	extractor := NewExtractor(DefaultOptions())
	// R=255は四捨五入で260になるためクランプが必要
	img := solidImage(50, 50, color.NRGBA{R: 255, G: 128, B: 0, A: 255})

	colors := extractor.Extract(img, 5)
	if len(colors) != 1 {
		t.Fatalf("expected 1 color, got %d: %v", len(colors), colors)
	}
	if colors[0] != "#FA8200" {
		t.Errorf("expected '#FA8200', got %q", colors[0])
	}
	if len(colors[0]) != 7 {
		t.Errorf("expected 7-character hex string, got %q", colors[0])
	}
}

// TestExtractor_Extract_CountLimit は抽出色数がcountを超えないことをテストする。
func TestExtractor_Extract_CountLimit(t *testing.T) {
	extractor := NewExtractor(DefaultOptions())

	// 10本の縦ストライプで10色以上のバケットを作る
	img := image.NewNRGBA(image.Rect(0, 0, 50, 50))
	for i := 0; i < 10; i++ {
		c := color.NRGBA{R: uint8(50 + i*20), G: 100, B: uint8(200 - i*15), A: 255}
		fillRect(img, image.Rect(i*5, 0, (i+1)*5, 50), c)
	}

	colors := extractor.Extract(img, 5)
	if len(colors) > 5 {
		t.Errorf("expected at most 5 colors, got %d: %v", len(colors), colors)
	}
	if len(colors) == 0 {
		t.Error("expected non-empty palette for multi-color image")
	}
}

// TestExtractor_Extract_Deterministic は同一画像に対して常に同一結果を返すことをテストする。
func TestExtractor_Extract_Deterministic(t *testing.T) {
	extractor := NewExtractor(DefaultOptions())

	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(40 + x*3), G: uint8(60 + y*2), B: 120, A: 255})
		}
	}

	first := extractor.Extract(img, 5)
	for i := 0; i < 10; i++ {
		got := extractor.Extract(img, 5)
		if !reflect.DeepEqual(got, first) {
			t.Fatalf("extraction is not deterministic: first=%v, got=%v", first, got)
		}
	}
}

// TestExtractor_Extract_NilImage はnil画像で空パレットを返すことをテストする。
func TestExtractor_Extract_NilImage(t *testing.T) {
	extractor := NewExtractor(DefaultOptions())
	colors := extractor.Extract(nil, 5)
	if len(colors) != 0 {
		t.Errorf("expected empty palette for nil image, got %v", colors)
	}
}

// TestExtractor_Extract_ZeroCount はcountが0以下で空パレットを返すことをテストする。
func TestExtractor_Extract_ZeroCount(t *testing.T) {
	extractor := NewExtractor(DefaultOptions())
	img := solidImage(50, 50, color.NRGBA{R: 200, G: 100, B: 50, A: 255})

	if colors := extractor.Extract(img, 0); len(colors) != 0 {
		t.Errorf("expected empty palette for count=0, got %v", colors)
	}
}

// TestNewExtractor_CorrectsInvalidOptions は不正なオプションがデフォルトに補正されることをテストする。
func TestNewExtractor_CorrectsInvalidOptions(t *testing.T) {
	extractor := NewExtractor(Options{SampleSize: 0, QuantStep: -1})
	if extractor.opts.SampleSize != defaultSampleSize {
		t.Errorf("expected SampleSize %d, got %d", defaultSampleSize, extractor.opts.SampleSize)
	}
	if extractor.opts.QuantStep != defaultQuantStep {
		t.Errorf("expected QuantStep %d, got %d", defaultQuantStep, extractor.opts.QuantStep)
	}
}
