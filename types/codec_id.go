// codec_id.go defines the CodecID enum.

package types

import (
	"fmt"
)

type CodecID int

const (
	// the constants are copied from libav's enum AVCodecID:
	CodecIDNone       = CodecID(0)
	CodecIDMpeg2Video = CodecID(2)
	CodecIDMpeg4      = CodecID(12)
	CodecIDH264       = CodecID(27)
	CodecIDVp8        = CodecID(139)
	CodecIDVp9        = CodecID(167)
	CodecIDHevc       = CodecID(173)
	CodecIDAv1        = CodecID(226)
)

func (c CodecID) String() string {
	switch c {
	case CodecIDNone:
		return "none"
	case CodecIDMpeg2Video:
		return "mpeg2video"
	case CodecIDMpeg4:
		return "mpeg4"
	case CodecIDH264:
		return "h264"
	case CodecIDVp8:
		return "vp8"
	case CodecIDVp9:
		return "vp9"
	case CodecIDHevc:
		return "hevc"
	case CodecIDAv1:
		return "av1"
	}
	return fmt.Sprintf("codec_%d", int(c))
}
