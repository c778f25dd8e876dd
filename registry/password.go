package registry

import (
	"github.com/alexedwards/argon2id"
	"github.com/pkg/errors"
)

// PasswordHasher digests and verifies passwords. Digests are self-describing
// so parameters can change without invalidating stored records.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) (bool, error)
}

type Argon2Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

var DefaultArgon2Params = Argon2Params{
	Time:    1,
	Memory:  64 * 1024,
	Threads: 4,
	KeyLen:  32,
	SaltLen: 16,
}

var errDigestParams = errors.New("password digest has zero time or parallelism")

// Argon2Hasher produces PHC strings:
// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
type Argon2Hasher struct {
	params *argon2id.Params
}

func NewArgon2Hasher(params Argon2Params) *Argon2Hasher {
	return &Argon2Hasher{params: &argon2id.Params{
		Memory:      params.Memory,
		Iterations:  params.Time,
		Parallelism: params.Threads,
		SaltLength:  params.SaltLen,
		KeyLength:   params.KeyLen,
	}}
}

func (h *Argon2Hasher) Hash(plain string) (string, error) {
	digest, err := argon2id.CreateHash(plain, h.params)
	if err != nil {
		return "", errors.Wrap(err, "failed to hash password")
	}
	return digest, nil
}

// Verify recomputes the key with the parameters embedded in digest.
func (h *Argon2Hasher) Verify(plain, digest string) (bool, error) {
	params, _, _, err := argon2id.DecodeHash(digest)
	if err != nil {
		return false, errors.Wrap(err, "invalid password digest")
	}
	// argon2 panics on zero rounds or lanes
	if params.Iterations == 0 || params.Parallelism == 0 {
		return false, errDigestParams
	}

	ok, err := argon2id.ComparePasswordAndHash(plain, digest)
	if err != nil {
		return false, errors.Wrap(err, "failed to verify password")
	}
	return ok, nil
}
