// Package onnx runs a sentence-transformers model (all-MiniLM-L6-v2 by
// default) locally through ONNX Runtime. The real embedder requires cgo and
// the onnxruntime shared library.
package onnx

// Config locates the exported model, its tokenizer and the runtime library.
type Config struct {
	ModelPath         string
	TokenizerPath     string
	SharedLibraryPath string
	OutputName        string
	Dimension         int
	MaxTokens         int
}

func (c *Config) applyDefaults() {
	if c.OutputName == "" {
		c.OutputName = "last_hidden_state"
	}
	if c.Dimension <= 0 {
		c.Dimension = 384
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 256
	}
}

// truncate keeps at most maxTokens ids, preserving the trailing [SEP] token.
func truncate(ids, mask []int64, maxTokens int) ([]int64, []int64) {
	if len(ids) <= maxTokens {
		return ids, mask
	}
	last := ids[len(ids)-1]
	ids = append(ids[:maxTokens-1:maxTokens-1], last)
	mask = mask[:maxTokens]
	return ids, mask
}

// meanPool averages token embeddings of one sequence, weighted by the
// attention mask. hidden is laid out as [seqLen][dim].
func meanPool(hidden []float32, mask []int64, seqLen, dim int) []float32 {
	out := make([]float32, dim)
	var count float32
	for t := 0; t < seqLen; t++ {
		if mask[t] == 0 {
			continue
		}
		row := hidden[t*dim : (t+1)*dim]
		for j, v := range row {
			out[j] += v
		}
		count++
	}
	if count == 0 {
		return out
	}
	for j := range out {
		out[j] /= count
	}
	return out
}
