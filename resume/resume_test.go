package resume

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheck(t *testing.T) {
	t.Run("Should reject empty uploads", func(t *testing.T) {
		assert.ErrorIs(t, Check(nil), ErrEmpty)
	})

	t.Run("Should reject non-PDF content", func(t *testing.T) {
		assert.ErrorIs(t, Check([]byte("plain text resume")), ErrUnsupported)
		assert.ErrorIs(t, Check([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}), ErrUnsupported)
	})

	t.Run("Should reject oversized files", func(t *testing.T) {
		data := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("a"), MaxSize)...)
		assert.ErrorIs(t, Check(data), ErrTooLarge)
	})

	t.Run("Should accept PDF content", func(t *testing.T) {
		assert.NoError(t, Check([]byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n")))
	})
}

func TestText(t *testing.T) {
	t.Run("Should fail on a non-PDF", func(t *testing.T) {
		_, err := Text([]byte("hello"))
		assert.ErrorIs(t, err, ErrUnsupported)
	})

	t.Run("Should fail on a truncated PDF", func(t *testing.T) {
		_, err := Text([]byte("%PDF-1.4\nnot really a pdf"))
		assert.Error(t, err)
	})
}
