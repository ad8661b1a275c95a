package fixture

import (
	"bytes"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func relaxed() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// PageCount validates data in relaxed mode and returns its page count.
func PageCount(data []byte) (int, error) {
	if err := api.Validate(bytes.NewReader(data), relaxed()); err != nil {
		return 0, err
	}
	return api.PageCount(bytes.NewReader(data), relaxed())
}

// PageContent returns the decoded content stream of page n (1-based).
func PageContent(data []byte, n int) (string, error) {
	conf := relaxed()
	conf.Cmd = model.EXTRACTCONTENT
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return "", err
	}
	r, err := pdfcpu.ExtractPageContent(ctx, n)
	if err != nil || r == nil {
		return "", err
	}
	b, err := io.ReadAll(r)
	return string(b), err
}
