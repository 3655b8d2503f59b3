package metrics

import (
	"io"
	"net/http"
	"sort"
	"sync"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

// Generation outcomes used as the "result" label.
const (
	ResultSuccess    = "success"
	ResultValidation = "validation"
	ResultIO         = "io"
	ResultParse      = "parse"
	ResultEncode     = "encode"
)

const (
	nameGenerate = "qrledger_generate_total"
	nameUpserts  = "qrledger_upserts_total"
	nameRecords  = "qrledger_records"
)

// Registry holds the service counters. The zero value is not usable; call New.
type Registry struct {
	mu       sync.Mutex
	generate map[string]float64
	upserts  float64
	records  float64
}

// New returns an empty Registry with every result label pre-registered at 0.
func New() *Registry {
	r := &Registry{generate: make(map[string]float64)}
	for _, res := range []string{ResultSuccess, ResultValidation, ResultIO, ResultParse, ResultEncode} {
		r.generate[res] = 0
	}
	return r
}

// ObserveGenerate counts one generation attempt with the given outcome.
func (r *Registry) ObserveGenerate(result string) {
	r.mu.Lock()
	r.generate[result]++
	r.mu.Unlock()
}

// ObserveUpsert counts one committed store upsert.
func (r *Registry) ObserveUpsert() {
	r.mu.Lock()
	r.upserts++
	r.mu.Unlock()
}

// SetRecords records the current number of records in the store.
func (r *Registry) SetRecords(n int) {
	r.mu.Lock()
	r.records = float64(n)
	r.mu.Unlock()
}

// Families returns the current values as metric families sorted by name.
func (r *Registry) Families() []*dto.MetricFamily {
	r.mu.Lock()
	defer r.mu.Unlock()

	results := make([]string, 0, len(r.generate))
	for res := range r.generate {
		results = append(results, res)
	}
	sort.Strings(results)

	gen := &dto.MetricFamily{
		Name: proto.String(nameGenerate),
		Help: proto.String("QR generation requests by outcome."),
		Type: dto.MetricType_COUNTER.Enum(),
	}
	for _, res := range results {
		gen.Metric = append(gen.Metric, &dto.Metric{
			Label:   []*dto.LabelPair{{Name: proto.String("result"), Value: proto.String(res)}},
			Counter: &dto.Counter{Value: proto.Float64(r.generate[res])},
		})
	}

	return []*dto.MetricFamily{
		gen,
		{
			Name:   proto.String(nameRecords),
			Help:   proto.String("Records currently held in the store file."),
			Type:   dto.MetricType_GAUGE.Enum(),
			Metric: []*dto.Metric{{Gauge: &dto.Gauge{Value: proto.Float64(r.records)}}},
		},
		{
			Name:   proto.String(nameUpserts),
			Help:   proto.String("Records written to the store."),
			Type:   dto.MetricType_COUNTER.Enum(),
			Metric: []*dto.Metric{{Counter: &dto.Counter{Value: proto.Float64(r.upserts)}}},
		},
	}
}

// WriteText writes all families in the Prometheus text exposition format.
func (r *Registry) WriteText(w io.Writer) error {
	for _, mf := range r.Families() {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// ServeHTTP serves GET /metrics.
func (r *Registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	r.WriteText(w) //nolint:errcheck
}
