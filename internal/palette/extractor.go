// Package palette は画像からの代表色パレット抽出を提供する。
// 抽出器本体と、URLから画像を取得してパレットを返すローダーを含む。
package palette

import (
	"fmt"
	"image"
	"image/draw"
	"sort"
)

const (
	// defaultSampleSize はサンプリング前に縮小する正方形の一辺（px）。
	// ヒストグラム構築コストを元画像の解像度に依存させないための固定縮小で、
	// 忠実度を速度と引き換えにする意図的なトレードオフ。
	defaultSampleSize = 50
	// defaultQuantStep はチャンネル量子化の刻み幅。近似色を同一バケットにまとめる。
	defaultQuantStep = 10

	// alphaThreshold 未満のアルファ値のピクセルは実質透明として無視する。
	alphaThreshold = 128
	// 輝度がminBrightness未満（ほぼ黒、レターボックス等）または
	// maxBrightness超（ほぼ白、白飛び背景等）のピクセルは被写体外とみなして無視する。
	minBrightness = 20
	maxBrightness = 235
)

// Options はパレット抽出のチューニングパラメータを保持する。
// 値は経験的に選ばれたデフォルトであり、設定で差し替え可能。
type Options struct {
	SampleSize int // 縮小後の正方形の一辺（px）
	QuantStep  int // チャンネル量子化の刻み幅
}

// DefaultOptions はデフォルトの抽出パラメータを返す。
func DefaultOptions() Options {
	return Options{
		SampleSize: defaultSampleSize,
		QuantStep:  defaultQuantStep,
	}
}

// Extractor はビットマップから代表色パレットを抽出する。
type Extractor struct {
	opts Options
}

// NewExtractor はExtractorの新しいインスタンスを生成する。
// 不正なオプション値（0以下）はデフォルト値に補正される。
func NewExtractor(opts Options) *Extractor {
	if opts.SampleSize <= 0 {
		opts.SampleSize = defaultSampleSize
	}
	if opts.QuantStep <= 0 {
		opts.QuantStep = defaultQuantStep
	}
	return &Extractor{opts: opts}
}

// Extract は画像から代表色を出現頻度降順で最大count件抽出する。
// 返り値は大文字の #RRGGBB 文字列。
// 同一ビットマップに対して常に同一の結果を返す（決定的）。
// 全ピクセルがフィルタで除外された場合は空スライスを返す。
func (e *Extractor) Extract(img image.Image, count int) []string {
	if img == nil || count <= 0 {
		return []string{}
	}

	sampled := sampleSquare(img, e.opts.SampleSize)
	if sampled == nil {
		return []string{}
	}

	// ピクセル走査: バケットごとのピクセル数と初出順を記録する。
	// Goのmap反復順は不定のため、初出順スライスが安定ソートの基準になる。
	counts := make(map[string]int)
	var order []string

	bounds := sampled.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		rowOffset := (y - bounds.Min.Y) * sampled.Stride
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			offset := rowOffset + (x-bounds.Min.X)*4
			r := int(sampled.Pix[offset])
			g := int(sampled.Pix[offset+1])
			b := int(sampled.Pix[offset+2])
			a := int(sampled.Pix[offset+3])

			// 実質透明なピクセルは寄与しない
			if a < alphaThreshold {
				continue
			}

			// 知覚輝度によるフィルタ（極端に暗い/明るいピクセルは背景ノイズの可能性が高い）
			brightness := (299*r + 587*g + 114*b) / 1000
			if brightness < minBrightness || brightness > maxBrightness {
				continue
			}

			hex := quantizedHex(r, g, b, e.opts.QuantStep)
			if _, seen := counts[hex]; !seen {
				order = append(order, hex)
			}
			counts[hex]++
		}
	}

	// 頻度降順・同数は初出順（安定ソート）
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > count {
		order = order[:count]
	}
	return order
}

// quantizedHex は各チャンネルをstep刻みの最近値に量子化し、
// 大文字の #RRGGBB 文字列を返す。
// 四捨五入で255を超えうるため250にクランプし、2桁の16進表現を保証する。
func quantizedHex(r, g, b, step int) string {
	return fmt.Sprintf("#%02X%02X%02X",
		quantize(r, step), quantize(g, step), quantize(b, step))
}

// quantize はチャンネル値をstep刻みの最近値（四捨五入）に丸める。
func quantize(c, step int) int {
	q := (c + step/2) / step * step
	if q > 250 {
		q = 250
	}
	return q
}

// sampleSquare は画像をsize×sizeの正方形に最近傍サンプリングで縮小する。
// 元画像が空の場合はnilを返す。
func sampleSquare(img image.Image, size int) *image.NRGBA {
	src := toNRGBA(img)
	bounds := src.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil
	}

	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		srcY := y * height / size
		dstRowOffset := y * dst.Stride
		srcRowOffset := srcY * src.Stride
		for x := 0; x < size; x++ {
			srcX := x * width / size
			srcOffset := srcRowOffset + srcX*4
			dstOffset := dstRowOffset + x*4
			copy(dst.Pix[dstOffset:dstOffset+4], src.Pix[srcOffset:srcOffset+4])
		}
	}
	return dst
}

// toNRGBA は任意のimage.ImageをNRGBAに変換する。
func toNRGBA(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Bounds().Min == (image.Point{}) {
		return nrgba
	}
	bounds := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return dst
}
