package errors_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	pkgerrors "github.com/agentstation/ppmi500/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := pkgerrors.New("test error")
	assert.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())
}

func TestNotFoundError(t *testing.T) {
	t.Run("basic error", func(t *testing.T) {
		err := &pkgerrors.NotFoundError{
			Resource: "subject",
			ID:       "3001",
		}
		assert.Equal(t, "subject 3001 not found", err.Error())
		assert.True(t, errors.Is(err, pkgerrors.ErrNotFound))
	})

	t.Run("wrapped error", func(t *testing.T) {
		base := pkgerrors.NewNotFoundError("object", "metadata.csv")
		wrapped := errors.Join(errors.New("failed"), base)
		assert.True(t, pkgerrors.IsNotFound(wrapped))
	})
}

func TestValidationError(t *testing.T) {
	t.Run("with field", func(t *testing.T) {
		err := pkgerrors.NewValidationError("sex_codes", "M", "expected key=value")
		assert.Equal(t, "validation failed for field sex_codes: expected key=value", err.Error())
		assert.True(t, pkgerrors.IsValidationError(err))
	})

	t.Run("without field", func(t *testing.T) {
		err := &pkgerrors.ValidationError{Message: "no QC sites"}
		assert.Equal(t, "validation failed: no QC sites", err.Error())
	})
}

func TestColumnError(t *testing.T) {
	err := pkgerrors.NewColumnError("demographics", "filename")
	assert.Equal(t, `table demographics has no column "filename"`, err.Error())
	assert.True(t, pkgerrors.IsMissingColumn(err))
	assert.True(t, pkgerrors.IsMissingColumn(fmt.Errorf("select: %w", err)))

	anonymous := pkgerrors.NewColumnError("", "date")
	assert.Equal(t, `table has no column "date"`, anonymous.Error())
}

func TestUnrecognizedCodeError(t *testing.T) {
	t.Run("bare", func(t *testing.T) {
		err := pkgerrors.NewUnrecognizedCodeError("qchuman_DTI_AR", "maybe")
		assert.Equal(t, `unrecognized QC code "maybe" in column qchuman_DTI_AR`, err.Error())
		assert.True(t, pkgerrors.IsUnrecognizedCode(err))
	})

	t.Run("with location", func(t *testing.T) {
		err := &pkgerrors.UnrecognizedCodeError{
			Site:    "AR",
			Row:     4,
			ImageID: "I1",
			Column:  "qchuman_DTI_AR",
			Value:   "?",
		}
		assert.Contains(t, err.Error(), "site AR, row 4, image I1")
	})
}

func TestObjectStoreError(t *testing.T) {
	base := errors.New("AccessDenied")

	t.Run("with key", func(t *testing.T) {
		err := pkgerrors.NewObjectStoreError("get", "bucket", "a/b.json", base)
		assert.Equal(t, "object store get s3://bucket/a/b.json: AccessDenied", err.Error())
		assert.Equal(t, base, err.Unwrap())
		assert.True(t, pkgerrors.IsObjectStore(err))
	})

	t.Run("without key", func(t *testing.T) {
		err := pkgerrors.NewObjectStoreError("list", "bucket", "", base)
		assert.Contains(t, err.Error(), "list on bucket bucket")
	})

	t.Run("wrap helper", func(t *testing.T) {
		assert.Nil(t, pkgerrors.WrapObjectStore("get", "b", "k", nil))
		err := pkgerrors.WrapObjectStore("get", "b", "k", base)
		var storeErr *pkgerrors.ObjectStoreError
		require.True(t, errors.As(err, &storeErr))
		assert.Equal(t, "k", storeErr.Key)
		assert.True(t, errors.Is(err, base))
	})
}

func TestKeyMismatchError(t *testing.T) {
	err := &pkgerrors.KeyMismatchError{Missing: []string{"3001-20180101"}}
	assert.True(t, pkgerrors.IsKeyMismatch(err))
	assert.Contains(t, err.Error(), "1 missing [3001-20180101]")
	assert.Contains(t, err.Error(), "0 extra")
}

func TestConfigError(t *testing.T) {
	err := pkgerrors.NewConfigError("metadata_source", "unknown kind \"ftp\"", nil)
	assert.Contains(t, err.Error(), "metadata_source")
	assert.Contains(t, err.Error(), "ftp")
	assert.Nil(t, err.Unwrap())
}

func TestParseError(t *testing.T) {
	t.Run("with line", func(t *testing.T) {
		err := &pkgerrors.ParseError{Format: "csv", File: "ids.csv", Line: 3, Message: "wrong number of fields"}
		assert.Equal(t, "parse error in csv at ids.csv:3: wrong number of fields", err.Error())
	})

	t.Run("file only", func(t *testing.T) {
		err := pkgerrors.NewParseError("json", "s.json", "unexpected EOF", nil)
		assert.Equal(t, "parse error in json file s.json: unexpected EOF", err.Error())
	})

	t.Run("format only", func(t *testing.T) {
		err := pkgerrors.WrapParse("yaml", "", errors.New("bad indent"))
		assert.Equal(t, "yaml parse error: bad indent", err.Error())
	})
}

func TestIOError(t *testing.T) {
	t.Run("unwrap", func(t *testing.T) {
		baseErr := errors.New("disk full")
		err := pkgerrors.NewIOError("write", "/data/out.csv", baseErr)
		assert.Equal(t, baseErr, err.Unwrap())
		assert.Contains(t, err.Error(), "/data/out.csv")
	})

	t.Run("wrap helper", func(t *testing.T) {
		assert.Nil(t, pkgerrors.WrapIO("read", "x", nil))
		err := pkgerrors.WrapIO("read", "ids.csv", errors.New("no such file"))
		ioErr, ok := err.(*pkgerrors.IOError)
		require.True(t, ok)
		assert.Equal(t, "read", ioErr.Operation)
		assert.Equal(t, "ids.csv", ioErr.Path)
	})
}

func TestWrapValidation(t *testing.T) {
	assert.Nil(t, pkgerrors.WrapValidation("field", nil))
	err := pkgerrors.WrapValidation("lookup_cache_size", errors.New("must be positive"))
	assert.True(t, pkgerrors.IsValidationError(err))
}

func TestSentinelErrors(t *testing.T) {
	sentinels := []error{
		pkgerrors.ErrNotFound,
		pkgerrors.ErrInvalidInput,
		pkgerrors.ErrMissingColumn,
		pkgerrors.ErrUnrecognizedCode,
		pkgerrors.ErrObjectStore,
		pkgerrors.ErrKeyMismatch,
		pkgerrors.ErrCanceled,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j {
				assert.False(t, errors.Is(a, b), "%v should not match %v", a, b)
			}
		}
	}
	assert.True(t, pkgerrors.IsCanceled(fmt.Errorf("run: %w", pkgerrors.ErrCanceled)))
}

func TestWrapCanceled(t *testing.T) {
	assert.Nil(t, pkgerrors.WrapCanceled("lookup", nil))
	err := pkgerrors.WrapCanceled("subject lookup", context.Canceled)
	assert.True(t, pkgerrors.IsCanceled(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "subject lookup: operation canceled: context canceled", err.Error())
}
