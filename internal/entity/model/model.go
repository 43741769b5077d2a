// Package model loads trained topic-model artifacts and renders the documents
// they contribute to the model collection and to the owning corpus.
package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kailas-cloud/topicdex/internal/db"
	"github.com/kailas-cloud/topicdex/internal/domain"
	"github.com/kailas-cloud/topicdex/internal/domain/codec"
	"github.com/kailas-cloud/topicdex/internal/domain/similarity"
	"github.com/kailas-cloud/topicdex/internal/entity/dataset"
)

// Trainers that produced the artifacts.
const (
	TrainerMallet  = "mallet"
	TrainerProdLDA = "prodlda"
	TrainerCTM     = "ctm"
)

// Action selects what BuildCorpusUpdate writes.
type Action string

// Corpus update actions.
const (
	ActionSet    Action = "set"
	ActionRemove Action = "remove"
)

// Budgets are the quantization budgets used when encoding a model.
type Budgets struct {
	MaxSum          int
	MaxSumNeural    int
	ThetaBudget     int
	SimilarityFloor float64
}

// TrainConfig is the subset of trainconfig.json the index needs.
type TrainConfig struct {
	TrDtSet string `json:"TrDtSet"`
	Trainer string `json:"trainer"`
}

// Model is a trained topic model read from disk.
type Model struct {
	Name       string
	CorpusName string
	Dir        string
	Train      TrainConfig

	Alphas       []float64
	Betas        [][]float64
	Thetas       [][]float64
	Vocab        []string
	Coords       [][]float64
	Descriptions []string
	Entropy      []float64
	Coherence    []float64
	NDocsActive  []float64
	Distances    []string

	budgets Budgets
}

// DocTopicField is the corpus field holding a document's encoded thetas for model.
func DocTopicField(model string) string { return "doctpc_" + model }

// SimilarityField is the corpus field holding a document's neighbor list for model.
func SimilarityField(model string) string { return "sim_" + model }

// NameFromPath returns the model name for a model folder: its stem, lowercased.
func NameFromPath(dir string) string {
	base := filepath.Base(filepath.Clean(dir))
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}

// ReadTrainConfig reads trainconfig.json from a model folder.
func ReadTrainConfig(dir string) (TrainConfig, error) {
	path := filepath.Join(dir, "trainconfig.json")
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return TrainConfig{}, fmt.Errorf("%w: %s: %v", domain.ErrMalformedManifest, path, err)
	}
	var tc TrainConfig
	if err := json.Unmarshal(data, &tc); err != nil {
		return TrainConfig{}, fmt.Errorf("%w: %s: %v", domain.ErrMalformedManifest, path, err)
	}
	if tc.TrDtSet == "" {
		return TrainConfig{}, fmt.Errorf("%w: %s has no TrDtSet", domain.ErrMalformedManifest, path)
	}
	return tc, nil
}

// CorpusName is the collection a training dataset path was indexed as.
func (tc TrainConfig) CorpusName() string {
	base := tc.TrDtSet
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	base, _, _ = strings.Cut(base, ".")
	return strings.ToLower(base)
}

// Load reads the model folder at dir.
func Load(dir string, budgets Budgets) (*Model, error) {
	tc, err := ReadTrainConfig(dir)
	if err != nil {
		return nil, err
	}
	m := &Model{
		Name:       NameFromPath(dir),
		CorpusName: tc.CorpusName(),
		Dir:        dir,
		Train:      tc,
		budgets:    budgets,
	}

	tm := filepath.Join(dir, "TMmodel")
	if m.Alphas, err = readFloats(filepath.Join(tm, "alphas.txt"), false); err != nil {
		return nil, err
	}
	if m.Betas, err = readMatrix(filepath.Join(tm, "betas.txt"), false); err != nil {
		return nil, err
	}
	if m.Vocab, err = readLines(filepath.Join(tm, "vocab.txt"), false); err != nil {
		return nil, err
	}
	if m.Thetas, err = readSparse(filepath.Join(tm, "thetas.txt"), len(m.Alphas)); err != nil {
		return nil, err
	}
	if m.Distances, err = readLines(filepath.Join(tm, "distances.txt"), false); err != nil {
		return nil, err
	}
	if err := m.readOptional(tm); err != nil {
		return nil, err
	}
	if err := m.check(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Model) readOptional(tm string) error {
	var err error
	if m.Coords, err = readMatrix(filepath.Join(tm, "tpc_coords.txt"), true); err != nil {
		return err
	}
	if m.Descriptions, err = readLines(filepath.Join(tm, "tpc_descriptions.txt"), true); err != nil {
		return err
	}
	if m.Entropy, err = readFloats(filepath.Join(tm, "topic_entropy.txt"), true); err != nil {
		return err
	}
	if m.Coherence, err = readFloats(filepath.Join(tm, "topic_coherence.txt"), true); err != nil {
		return err
	}
	m.NDocsActive, err = readFloats(filepath.Join(tm, "ndocs_active.txt"), true)
	return err
}

// check verifies the artifacts agree on the number of topics and documents.
func (m *Model) check() error {
	k := len(m.Alphas)
	if k == 0 {
		return fmt.Errorf("%w: model %s has no topics", domain.ErrMalformedManifest, m.Name)
	}
	if len(m.Betas) != k {
		return fmt.Errorf("%w: model %s: %d alphas but %d beta rows", domain.ErrMalformedManifest, m.Name, k, len(m.Betas))
	}
	for i, row := range m.Betas {
		if len(row) != len(m.Vocab) {
			return fmt.Errorf("%w: model %s: topic %d has %d betas for %d words",
				domain.ErrMalformedManifest, m.Name, i, len(row), len(m.Vocab))
		}
	}
	if len(m.Distances) != len(m.Thetas) {
		return fmt.Errorf("%w: model %s: %d theta rows but %d similarity rows",
			domain.ErrMalformedManifest, m.Name, len(m.Thetas), len(m.Distances))
	}
	for name, n := range map[string]int{
		"tpc_coords":       len(m.Coords),
		"tpc_descriptions": len(m.Descriptions),
		"topic_entropy":    len(m.Entropy),
		"topic_coherence":  len(m.Coherence),
		"ndocs_active":     len(m.NDocsActive),
	} {
		if n != 0 && n != k {
			return fmt.Errorf("%w: model %s: %s has %d rows for %d topics", domain.ErrMalformedManifest, m.Name, name, n, k)
		}
	}
	return nil
}

// IsNeural reports whether the model gets the neural word budget.
func (m *Model) IsNeural() bool {
	return strings.HasPrefix(m.Name, TrainerProdLDA) || strings.HasPrefix(m.Name, TrainerCTM)
}

// WordBudget is the quantization budget for topic-word weights.
func (m *Model) WordBudget() int {
	if m.IsNeural() {
		return m.budgets.MaxSumNeural
	}
	return m.budgets.MaxSum
}

// BuildTopicDocuments renders one model-collection document per topic.
func (m *Model) BuildTopicDocuments() ([]db.Document, error) {
	docs := make([]db.Document, 0, len(m.Alphas))
	for i := range m.Alphas {
		weights, err := codec.Quantize(m.Betas[i], m.WordBudget())
		if err != nil {
			return nil, fmt.Errorf("topic %d betas: %w", i, err)
		}
		vec, err := codec.FromWeights(weights, codec.SliceTokens(m.Vocab))
		if err != nil {
			return nil, fmt.Errorf("topic %d betas: %w", i, err)
		}

		doc := db.Document{
			"id":         "t" + strconv.Itoa(i),
			"tpc_labels": "Topic " + strconv.Itoa(i),
			"alphas":     m.Alphas[i],
			"betas":      vec.String(),
			"vocab":      vec.Words(),
		}
		if m.Descriptions != nil {
			doc["tpc_descriptions"] = m.Descriptions[i]
		}
		if m.Entropy != nil {
			doc["topic_entropy"] = m.Entropy[i]
		}
		if m.Coherence != nil {
			doc["topic_coherence"] = m.Coherence[i]
		}
		if m.NDocsActive != nil {
			doc["ndocs_active"] = int64(m.NDocsActive[i])
		}
		if m.Coords != nil {
			doc["coords"] = m.Coords[i]
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// BuildCorpusUpdate renders the atomic updates that write (set) or blank
// (remove) this model's fields on every training document of its corpus.
func (m *Model) BuildCorpusUpdate(action Action) (string, []db.Document, error) {
	if action != ActionSet && action != ActionRemove {
		return "", nil, fmt.Errorf("%w: unknown action %q", domain.ErrInvalidArgument, action)
	}
	ids, err := m.DocumentIDs()
	if err != nil {
		return "", nil, err
	}

	docField, simField := DocTopicField(m.Name), SimilarityField(m.Name)
	updates := make([]db.Document, len(ids))

	if action == ActionRemove {
		for i, id := range ids {
			updates[i] = db.Document{
				"id":     id,
				docField: db.Set(""),
				simField: db.Set(""),
			}
		}
		return m.CorpusName, updates, nil
	}

	if len(ids) != len(m.Thetas) {
		return "", nil, fmt.Errorf("%w: model %s: %d training documents but %d theta rows",
			domain.ErrMalformedManifest, m.Name, len(ids), len(m.Thetas))
	}
	for i, id := range ids {
		thetas, err := m.encodeThetas(i)
		if err != nil {
			return "", nil, fmt.Errorf("document %d thetas: %w", id, err)
		}
		sims, err := similarity.ParseNeighbors(m.Distances[i])
		if err != nil {
			return "", nil, fmt.Errorf("document %d similarities: %w", id, err)
		}
		updates[i] = db.Document{
			"id":     id,
			docField: db.Set(thetas),
			simField: db.Set(sims.Normalize(id, m.budgets.SimilarityFloor).String()),
		}
	}
	return m.CorpusName, updates, nil
}

func (m *Model) encodeThetas(row int) (string, error) {
	weights, err := codec.Quantize(m.Thetas[row], m.budgets.ThetaBudget)
	if err != nil {
		return "", err
	}
	return codec.Encode(weights, codec.TopicTokens)
}

// DocumentIDs returns the corpus ids of the training documents, in theta row order.
func (m *Model) DocumentIDs() ([]int64, error) {
	switch strings.ToLower(m.Train.Trainer) {
	case TrainerMallet:
		return malletIDs(filepath.Join(m.Dir, "corpus.txt"))
	case TrainerProdLDA, TrainerCTM:
		return parquetIDs(filepath.Join(m.Dir, "corpus.parquet"))
	default:
		return nil, fmt.Errorf("%w: unsupported trainer %q", domain.ErrMalformedManifest, m.Train.Trainer)
	}
}

// malletIDs reads ids from a mallet import file where each line is `<id> 0 <text>`.
func malletIDs(path string) ([]int64, error) {
	lines, err := readLines(path, false)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(lines))
	for i, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		raw, _, _ := strings.Cut(l, " 0 ")
		raw = strings.Trim(strings.TrimSpace(raw), `"`)
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: corpus.txt line %d: id %q", domain.ErrMalformedManifest, i+1, raw)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parquetIDs(path string) ([]int64, error) {
	tbl, err := dataset.ReadParquet(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedManifest, err)
	}
	col, err := tbl.Column("id")
	if err != nil {
		return nil, fmt.Errorf("%w: corpus.parquet: %v", domain.ErrMalformedManifest, err)
	}
	ids := make([]int64, len(col))
	for i, v := range col {
		switch x := v.(type) {
		case int64:
			ids[i] = x
		case string:
			if ids[i], err = strconv.ParseInt(strings.TrimSpace(x), 10, 64); err != nil {
				return nil, fmt.Errorf("%w: corpus.parquet row %d: id %q", domain.ErrMalformedManifest, i, x)
			}
		default:
			return nil, fmt.Errorf("%w: corpus.parquet row %d: id %v", domain.ErrMalformedManifest, i, v)
		}
	}
	return ids, nil
}
