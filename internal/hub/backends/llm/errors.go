package llm

import "github.com/fialabdata/agenthub/internal/common/apperrors"

var (
	ErrLLM         apperrors.Error = apperrors.New("llm request failed")
	ErrNoChoices   apperrors.Error = ErrLLM.New("model returned no choices")
	ErrNoEmbedding apperrors.Error = ErrLLM.New("model returned no embedding")
)
