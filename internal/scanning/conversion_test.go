package scanning

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func encodedImage(encode func(*bytes.Buffer, image.Image) error) []byte {
	var buf bytes.Buffer
	Expect(encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4)))).To(Succeed())
	return buf.Bytes()
}

func pngBytes() []byte {
	return encodedImage(func(b *bytes.Buffer, img image.Image) error { return png.Encode(b, img) })
}

var _ = Describe("toPNG", func() {
	When("the upload is already PNG", func() {
		It("returns the data unchanged", func() {
			data := pngBytes()
			out, err := toPNG(data, "image/png")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(data))
		})
	})

	When("the upload is JPEG", func() {
		It("re-encodes it as PNG", func() {
			data := encodedImage(func(b *bytes.Buffer, img image.Image) error { return jpeg.Encode(b, img, nil) })
			out, err := toPNG(data, "image/jpeg")
			Expect(err).NotTo(HaveOccurred())
			_, format, err := image.Decode(bytes.NewReader(out))
			Expect(err).NotTo(HaveOccurred())
			Expect(format).To(Equal("png"))
		})
	})

	When("the upload is not an image", func() {
		It("returns an error", func() {
			_, err := toPNG([]byte("not an image"), "image/jpeg")
			Expect(err).To(MatchError(ContainSubstring("unsupported image format")))
		})
	})
})

var _ = DescribeTable("isHEIC",
	func(data []byte, mimeType string, expected bool) {
		Expect(isHEIC(data, mimeType)).To(Equal(expected))
	},
	Entry("heic MIME type", nil, "image/heic", true),
	Entry("heif MIME type", nil, "image/heif", true),
	Entry("heic brand", []byte("\x00\x00\x00\x18ftypheic"), "application/octet-stream", true),
	Entry("mif1 brand", []byte("\x00\x00\x00\x18ftypmif1"), "", true),
	Entry("jpeg", []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01"), "image/jpeg", false),
	Entry("short data", []byte("ftyp"), "", false),
)
