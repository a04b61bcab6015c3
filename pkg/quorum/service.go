package quorum

import (
	"context"
	"crypto/ed25519"
	"sort"
	"sync"
	"time"

	"github.com/Decentralized-Rights-Protocol/Dr-Blockchain-sub001/pkg/canonical"
	"github.com/Decentralized-Rights-Protocol/Dr-Blockchain-sub001/pkg/drperrors"
	"github.com/Decentralized-Rights-Protocol/Dr-Blockchain-sub001/pkg/drplog"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	signaturesIssued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "drp_quorum_signatures_issued_total",
		Help: "Number of per-Elder signatures successfully produced.",
	}, []string{"elder_id"})

	signBlockRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "drp_quorum_sign_block_requests_total",
		Help: "Number of sign_block calls handled.",
	})

	verifyQuorumRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "drp_quorum_verify_quorum_total",
		Help: "Number of verify_quorum calls handled, by outcome.",
	}, []string{"valid"})
)

func init() {
	prometheus.MustRegister(signaturesIssued, signBlockRequests, verifyQuorumRequests)
}

// ElderSummary is the list_elders entry shape. Reputation and Specialization
// are stored and returned here but never consulted by SignBlock's signer
// selection — they are queryable metadata, not a weighting input.
type ElderSummary struct {
	ElderID        string
	PublicKey      ed25519.PublicKey
	Fingerprint    string
	Status         Status
	Reputation     float64
	LastActivityTS time.Time
	Specialization string
}

// ListEldersResult is list_elders' response.
type ListEldersResult struct {
	N      uint
	M      uint
	Elders []ElderSummary
}

// Service is the Quorum Service. It owns the committee, a Signer
// (backed by the Keystore), and the m/n configuration explicitly as fields
// rather than package-level globals.
type Service struct {
	mu     sync.RWMutex
	elders map[string]*Elder
	signer Signer
	m      uint
	n      uint
	log    *drplog.Logger
}

// NewService constructs the Quorum Service. It performs the startup check
// that refuses to run if m > n or m < 1.
func NewService(elders []*Elder, signer Signer, m, n uint) (*Service, error) {
	if n == 0 {
		return nil, drperrors.New(drperrors.PreconditionFailed, "ELDER_COUNT must be >= 1")
	}
	if m < 1 || m > n {
		return nil, drperrors.New(drperrors.PreconditionFailed, "QUORUM_M must satisfy 1 <= m <= n")
	}

	index := make(map[string]*Elder, len(elders))
	for _, e := range elders {
		index[e.ElderID] = e
	}

	return &Service{
		elders: index,
		signer: signer,
		m:      m,
		n:      n,
		log:    drplog.New("Quorum"),
	}, nil
}

// ListElders returns the committee and its threshold, sorted by elder_id.
func (s *Service) ListElders() ListEldersResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.sortedIDsLocked()
	out := make([]ElderSummary, 0, len(ids))
	for _, id := range ids {
		e := s.elders[id]
		out = append(out, ElderSummary{
			ElderID:        e.ElderID,
			PublicKey:      e.PublicKey,
			Fingerprint:    e.Fingerprint(),
			Status:         e.Status,
			Reputation:     e.Reputation,
			LastActivityTS: e.LastActivityTS,
			Specialization: e.Specialization,
		})
	}
	return ListEldersResult{N: s.n, M: s.m, Elders: out}
}

func (s *Service) sortedIDsLocked() []string {
	ids := make([]string, 0, len(s.elders))
	for id := range s.elders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// signJob is one unit of fan-out work for SignBlock.
type signJob struct {
	elderID string
	pub     ed25519.PublicKey
}

type signResult struct {
	index int
	sig   SingleSignature
	ok    bool
}

// SignBlock canonicalizes header once and has every selected, active Elder
// sign the same bytes independently and concurrently. If
// elderIDs is nil, every active Elder is selected. The service does not
// enforce reaching m here; it returns whatever was collected, tagged with
// {m,n}. Signatures appear in the envelope in
// lexicographic elder_id selection order, not completion order, and a
// per-Elder signing failure does not abort the overall call.
func (s *Service) SignBlock(ctx context.Context, header canonical.BlockHeader, elderIDs []string) (*QuorumEnvelope, error) {
	signBlockRequests.Inc()

	jobs, err := s.selectSignersLocked(elderIDs)
	if err != nil {
		return nil, err
	}

	message := canonical.Header(header)
	results := make([]signResult, len(jobs))

	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job signJob) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				return
			default:
			}
			sigBytes, err := s.signer.Sign(job.elderID, message)
			if err != nil {
				s.log.Warn("signing failed for %s: %v", job.elderID, err)
				return
			}
			results[i] = signResult{
				index: i,
				ok:    true,
				sig: SingleSignature{
					ElderID:         job.elderID,
					SignerPublicKey: job.pub,
					SignatureBytes:  sigBytes,
					SignedAtTS:      time.Now().UTC(),
				},
			}
			signaturesIssued.WithLabelValues(job.elderID).Inc()
		}(i, job)
	}
	wg.Wait()

	envelope := &QuorumEnvelope{M: s.m, N: s.n}
	for _, r := range results {
		if r.ok {
			envelope.Signatures = append(envelope.Signatures, r.sig)
		}
	}
	return envelope, nil
}

// selectSignersLocked resolves elderIDs (or all active Elders) into
// deterministically ordered signJobs, validating existence/activeness.
func (s *Service) selectSignersLocked(elderIDs []string) ([]signJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	if elderIDs == nil {
		for id, e := range s.elders {
			if e.Status == StatusActive {
				ids = append(ids, id)
			}
		}
	} else {
		for _, id := range elderIDs {
			e, ok := s.elders[id]
			if !ok {
				return nil, drperrors.New(drperrors.NotFound, "unknown-elder: "+id)
			}
			if e.Status != StatusActive {
				return nil, drperrors.New(drperrors.UnauthorizedAction, "elder is not active: "+id)
			}
			ids = append(ids, id)
		}
	}

	sort.Strings(ids)

	jobs := make([]signJob, 0, len(ids))
	for _, id := range ids {
		e := s.elders[id]
		jobs = append(jobs, signJob{elderID: id, pub: e.PublicKey})
	}
	return jobs, nil
}

// VerifyQuorum verifies each signature in envelope against headerCanonical
// independently, deduplicating by signer_public_key. A
// revoked Elder's historical signature bytes may still verify
// cryptographically, but a slashed Elder's public key is excluded from the
// valid-signer count.
func (s *Service) VerifyQuorum(headerCanonical []byte, envelope QuorumEnvelope) VerifyResult {
	s.mu.RLock()
	slashed := make(map[string]bool)
	for _, e := range s.elders {
		if e.Status == StatusSlashed {
			slashed[string(e.PublicKey)] = true
		}
	}
	s.mu.RUnlock()

	seen := make(map[string]bool)
	var validSigners []string

	for _, sig := range envelope.Signatures {
		key := string(sig.SignerPublicKey)
		if seen[key] {
			continue // duplicate signer collapses to one
		}
		if slashed[key] {
			continue
		}
		if !ed25519.Verify(sig.SignerPublicKey, headerCanonical, sig.SignatureBytes) {
			continue
		}
		seen[key] = true
		validSigners = append(validSigners, sig.ElderID)
	}

	result := VerifyResult{
		ValidSigners:  validSigners,
		RequiredM:     s.m,
		TotalDistinct: len(validSigners),
	}
	result.Valid = len(validSigners) >= int(s.m)

	verifyQuorumRequests.WithLabelValues(boolLabel(result.Valid)).Inc()
	return result
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
