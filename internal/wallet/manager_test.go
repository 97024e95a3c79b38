package wallet_test

import (
	"testing"

	"github.com/Mohsinsiddi/w3dash/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const anvilKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func TestAddWatchOnlyWallet(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())

	require.NoError(t, mgr.AddWatch("mywallet", "0x1234567890abcdef1234567890abcdef12345678"))

	w, err := mgr.Get("mywallet")
	require.NoError(t, err)
	assert.Equal(t, "mywallet", w.Name)
	assert.Equal(t, wallet.TypeWatchOnly, w.Type)
	assert.Equal(t, "0x1234567890AbcdEF1234567890aBcdef12345678", w.Address)
	assert.False(t, w.CanSign())
}

func TestAddWatchInvalidAddress(t *testing.T) {
	mgr := wallet.NewManager()
	err := mgr.AddWatch("bad", "0x123")
	assert.ErrorIs(t, err, wallet.ErrInvalidAddress)
}

func TestAddDuplicateWalletErrors(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())

	w := &wallet.Wallet{Name: "dup", Address: "0x123", Type: wallet.TypeWatchOnly}
	require.NoError(t, mgr.Add("dup", w))
	assert.ErrorIs(t, mgr.Add("dup", w), wallet.ErrWalletExists)
}

func TestAddSigningWallet(t *testing.T) {
	ks := wallet.NewInMemoryKeystore()
	mgr := wallet.NewManager(wallet.WithInMemoryStore(), wallet.WithKeystore(ks))

	require.NoError(t, mgr.AddWithKey("signer", anvilKey))

	w, err := mgr.Get("signer")
	require.NoError(t, err)
	assert.Equal(t, wallet.TypeSigning, w.Type)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", w.Address) // known address for test key
	assert.Equal(t, "w3dash.signer", w.KeyRef)

	s, err := mgr.Signer("signer")
	require.NoError(t, err)
	assert.Equal(t, w.Address, s.Address().Hex())
}

func TestInvalidPrivateKey(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	err := mgr.AddWithKey("bad", "not-a-valid-key")
	assert.ErrorIs(t, err, wallet.ErrInvalidKey)
	assert.Empty(t, mgr.List())
}

func TestListWalletsSorted(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	for _, name := range []string{"w3", "w1", "w2"} {
		require.NoError(t, mgr.Add(name, &wallet.Wallet{Address: "0x1", Type: wallet.TypeWatchOnly}))
	}

	wallets := mgr.List()
	require.Len(t, wallets, 3)
	assert.Equal(t, "w1", wallets[0].Name)
	assert.Equal(t, "w3", wallets[2].Name)
}

func TestRemoveWalletDeletesKey(t *testing.T) {
	ks := wallet.NewInMemoryKeystore()
	mgr := wallet.NewManager(wallet.WithKeystore(ks))
	require.NoError(t, mgr.AddWithKey("w1", anvilKey))

	require.NoError(t, mgr.Remove("w1"))

	_, err := mgr.Get("w1")
	assert.ErrorIs(t, err, wallet.ErrWalletNotFound)
	_, err = ks.Retrieve("w3dash.w1")
	assert.Error(t, err)
}

func TestRemoveNonExistentWallet(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	assert.ErrorIs(t, mgr.Remove("ghost"), wallet.ErrWalletNotFound)
}

func TestSignerWatchOnly(t *testing.T) {
	mgr := wallet.NewManager()
	require.NoError(t, mgr.AddWatch("watch", "0x1234567890abcdef1234567890abcdef12345678"))
	_, err := mgr.Signer("watch")
	assert.ErrorIs(t, err, wallet.ErrWatchOnly)
}

func TestSetDefault(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	mgr.Add("w1", &wallet.Wallet{Address: "0x111", Type: wallet.TypeWatchOnly}) //nolint:errcheck
	mgr.Add("w2", &wallet.Wallet{Address: "0x222", Type: wallet.TypeWatchOnly}) //nolint:errcheck

	require.NoError(t, mgr.SetDefault("w2"))

	def := mgr.Default()
	require.NotNil(t, def)
	assert.Equal(t, "w2", def.Name)

	assert.ErrorIs(t, mgr.SetDefault("ghost"), wallet.ErrWalletNotFound)
}

func TestDefaultWalletWithSingleWallet(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	mgr.Add("only", &wallet.Wallet{Address: "0x111", Type: wallet.TypeWatchOnly}) //nolint:errcheck

	def := mgr.Default()
	require.NotNil(t, def)
	assert.Equal(t, "only", def.Name)
}

func TestDefaultNoneWithMany(t *testing.T) {
	mgr := wallet.NewManager()
	mgr.Add("a", &wallet.Wallet{Address: "0x1", Type: wallet.TypeWatchOnly}) //nolint:errcheck
	mgr.Add("b", &wallet.Wallet{Address: "0x2", Type: wallet.TypeWatchOnly}) //nolint:errcheck
	assert.Nil(t, mgr.Default())
}

func TestCreatedAtIsSet(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	mgr.Add("w", &wallet.Wallet{Address: "0x111", Type: wallet.TypeWatchOnly}) //nolint:errcheck

	w, _ := mgr.Get("w")
	assert.NotEmpty(t, w.CreatedAt)
}
