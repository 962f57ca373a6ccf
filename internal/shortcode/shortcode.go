package shortcode

import (
	"crypto/rand"
	"crypto/subtle"
	"math/big"

	"github.com/capsulehq/keepsake/internal/database"
	"github.com/capsulehq/keepsake/internal/kserror"
	"github.com/pkg/errors"
)

// base58 keeps codes easy to transcribe (no 0/O, I/l ambiguity).
const base58 = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

const (
	// CodeLength is the length of a public sharing code.
	CodeLength = 8
	// SecretLength is the length of a record's secret key.
	SecretLength = 24
	// maxAttempts bounds the collision retry loop of Allocate.
	maxAttempts = 20
)

// A Generator allocates collision-free sharing codes against the metadata store.
type Generator struct {
	db database.Client
}

// NewGenerator returns a generator backed by the given database.
func NewGenerator(db database.Client) *Generator {
	return &Generator{db: db}
}

// Allocate returns a fresh code that does not exist in the database. It retries
// on collision up to a hard cap and then fails with a code-exhausted error.
// Nothing is written; reserving the code is the caller's first persistent write.
func (g *Generator) Allocate() (string, error) {
	for i := 0; i < maxAttempts; i++ {
		code, err := Candidate(CodeLength)
		if err != nil {
			return "", err
		}

		exists, err := g.db.ContainsMemory(code)
		if err != nil {
			return "", errors.Wrap(err, "could not check code availability")
		}
		if !exists {
			return code, nil
		}
	}

	return "", kserror.Exhausted("Could not allocate a free code.")
}

// Candidate builds a random code where each alphabet symbol appears at most
// twice: the doubled alphabet is shuffled and truncated to the target length.
func Candidate(length int) (string, error) {
	if length > 2*len(base58) {
		return "", errors.New("candidate length exceeds doubled alphabet")
	}

	pool := []byte(base58 + base58)
	if err := shuffle(pool); err != nil {
		return "", err
	}
	return string(pool[:length]), nil
}

// Secret generates a unique random secret key.
func Secret(length int) string {
	pass := make([]byte, length)
	max := big.NewInt(int64(len(base58)))

	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err) // should never occured because max >= 0
		}
		pass[i] = base58[int(n.Int64())]
	}

	return string(pass)
}

// SecureCompare compares the givens strings in a constant time.
// So length info is not leaked via timing attacks.
func SecureCompare(s1, s2 string) bool {
	return subtle.ConstantTimeCompare([]byte(s1), []byte(s2)) == 1
}

func shuffle(b []byte) error {
	for i := len(b) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return errors.Wrap(err, "could not shuffle candidate pool")
		}
		j := int(n.Int64())
		b[i], b[j] = b[j], b[i]
	}
	return nil
}
