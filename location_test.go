package lattice

import (
	"errors"
	"sync"
	"testing"
)

func TestCheckLocation(t *testing.T) {
	tests := []struct {
		name     string
		policy   *LocationPolicy
		location string
		wantErr  error
	}{
		{
			name:     "public dns name",
			location: "http://svc1.example.com:3100",
			wantErr:  nil,
		},
		{
			name:     "https public ip",
			location: "https://93.184.216.34",
			wantErr:  nil,
		},
		{
			name:     "loopback rejected by default",
			location: "http://127.0.0.1:3100",
			wantErr:  ErrSsrfRejected,
		},
		{
			name:     "localhost rejected by default",
			location: "http://localhost:3100",
			wantErr:  ErrSsrfRejected,
		},
		{
			name:     "loopback allowed for dev",
			policy:   &LocationPolicy{AllowLoopback: true},
			location: "http://localhost:3100",
			wantErr:  nil,
		},
		{
			name:     "link local metadata endpoint",
			location: "http://169.254.169.254/latest/meta-data",
			wantErr:  ErrSsrfRejected,
		},
		{
			name:     "metadata hostname",
			location: "http://metadata.google.internal/computeMetadata",
			wantErr:  ErrSsrfRejected,
		},
		{
			name:     "private range rejected",
			location: "http://10.1.2.3:8080",
			wantErr:  ErrSsrfRejected,
		},
		{
			name:     "private range allowlisted",
			policy:   &LocationPolicy{Allowlist: []string{"10.0.0.0/8"}},
			location: "http://10.1.2.3:8080",
			wantErr:  nil,
		},
		{
			name:     "exact ip allowlisted",
			policy:   &LocationPolicy{Allowlist: []string{"192.168.1.50"}},
			location: "http://192.168.1.50:9000",
			wantErr:  nil,
		},
		{
			name:     "unspecified address",
			location: "http://0.0.0.0:8080",
			wantErr:  ErrSsrfRejected,
		},
		{
			name:     "bad scheme",
			location: "ftp://svc1.example.com",
			wantErr:  ErrValidation,
		},
		{
			name:     "no host",
			location: "http://",
			wantErr:  ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := tt.policy
			if policy == nil {
				policy = &LocationPolicy{}
			}
			err := policy.CheckLocation(tt.location)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("CheckLocation(%q) = %v, want nil", tt.location, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CheckLocation(%q) = %v, want %v", tt.location, err, tt.wantErr)
			}
		})
	}
}

// Registrations reach CheckLocation without holding any store lock, so the
// allowlist matcher init must hold up under the race detector.
func TestCheckLocationConcurrent(t *testing.T) {
	policy := &LocationPolicy{
		AllowLoopback: true,
		Allowlist:     []string{"10.0.0.0/8"},
	}
	locations := []string{
		"http://127.0.0.1:3100",
		"http://10.1.2.3:8080",
		"http://192.168.1.50:9000",
		"http://svc1.example.com:3100",
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				loc := locations[(g+i)%len(locations)]
				err := policy.CheckLocation(loc)
				if loc == "http://192.168.1.50:9000" {
					if !errors.Is(err, ErrSsrfRejected) {
						t.Errorf("CheckLocation(%q) = %v, want ErrSsrfRejected", loc, err)
					}
				} else if err != nil {
					t.Errorf("CheckLocation(%q) = %v, want nil", loc, err)
				}
			}
		}(g)
	}
	wg.Wait()
}
