package wallet

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// KeySigner signs EVM transactions and messages with one private key.
type KeySigner struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

// NewKeySigner parses a hex private key (0x prefix optional).
func NewKeySigner(hexKey string) (*KeySigner, error) {
	key, err := crypto.HexToECDSA(normaliseHexKey(hexKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &KeySigner{key: key, addr: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// SignerFor loads the key of a signing wallet from ks and checks that it
// still derives the wallet's recorded address.
func SignerFor(w *Wallet, ks KeystoreBackend) (*KeySigner, error) {
	if !w.CanSign() {
		return nil, fmt.Errorf("%q: %w", w.Name, ErrWatchOnly)
	}
	hexKey, err := ks.Retrieve(w.KeyRef)
	if err != nil {
		return nil, fmt.Errorf("retrieving key: %w", err)
	}
	s, err := NewKeySigner(hexKey)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(s.addr.Hex(), w.Address) {
		return nil, fmt.Errorf("key for %q derives %s, expected %s", w.Name, s.addr.Hex(), w.Address)
	}
	return s, nil
}

// Address returns the signer's address.
func (s *KeySigner) Address() common.Address {
	return s.addr
}

// SignTx signs an EVM transaction and returns the raw signed bytes.
func (s *KeySigner) SignTx(tx *types.Transaction, chainID *big.Int) ([]byte, error) {
	signer := types.NewLondonSigner(chainID)
	signed, err := types.SignTx(tx, signer, s.key)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}

	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshaling signed tx: %w", err)
	}

	return raw, nil
}
