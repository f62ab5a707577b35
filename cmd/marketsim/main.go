// Command marketsim runs a fixed-price token store session against an
// in-memory ledger: the store is initialized, a client buys tokens
// until the reserve runs dry, then sells part of them back.
package main

import (
	"bytes"
	"flag"
	"os"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"go.firedancer.io/tokenmarket/pkg/accounts"
	"go.firedancer.io/tokenmarket/pkg/cu"
	"go.firedancer.io/tokenmarket/pkg/sealevel"
	"k8s.io/klog/v2"
)

var (
	flagSellPrice      uint64
	flagBuyPrice       uint64
	flagClientLamports uint64
	flagClientTokens   uint64
	flagReserveTokens  uint64
)

var rootCmd = &cobra.Command{
	Use:   "marketsim",
	Short: "Simulate a fixed-price token store on an in-memory ledger",
	Run:   runSession,
}

func init() {
	klog.InitFlags(nil)
	rootCmd.Flags().AddGoFlagSet(flag.CommandLine)

	rootCmd.Flags().Uint64Var(&flagSellPrice, "sell-price", 50, "lamports the store pays per token")
	rootCmd.Flags().Uint64Var(&flagBuyPrice, "buy-price", 100, "lamports the store charges per token")
	rootCmd.Flags().Uint64Var(&flagClientLamports, "client-lamports", 1000, "client starting lamport balance")
	rootCmd.Flags().Uint64Var(&flagClientTokens, "client-tokens", 15, "client starting token balance")
	rootCmd.Flags().Uint64Var(&flagReserveTokens, "reserve-tokens", 10, "tokens stocked in the store reserve")
}

type ledger struct {
	execCtx *sealevel.ExecutionCtx
	txCtx   *sealevel.TransactionCtx

	admin          solana.PublicKey
	client         solana.PublicKey
	mint           solana.PublicKey
	clientTokenKey solana.PublicKey
	settingsAddr   solana.PublicKey
	reserveAddr    solana.PublicKey
	lamportsAddr   solana.PublicKey
}

func newLedger() (*ledger, error) {
	l := &ledger{
		admin:          solana.NewWallet().PublicKey(),
		client:         solana.NewWallet().PublicKey(),
		mint:           solana.NewWallet().PublicKey(),
		clientTokenKey: solana.NewWallet().PublicKey(),
	}

	var err error
	l.settingsAddr, _, err = sealevel.MarketSettingsAddress()
	if err != nil {
		return nil, err
	}
	l.reserveAddr, _, err = sealevel.MarketTokenReserveAddress()
	if err != nil {
		return nil, err
	}
	l.lamportsAddr, _, err = sealevel.MarketLamportsAddress()
	if err != nil {
		return nil, err
	}

	rent := sealevel.SysvarRent{LamportsPerUint8Year: 3480, ExemptionThreshold: 2.0, BurnPercent: 50}
	rentBuf := new(bytes.Buffer)
	err = rent.MarshalWithEncoder(bin.NewBinEncoder(rentBuf))
	if err != nil {
		return nil, err
	}

	clientToken := sealevel.TokenAccount{
		Mint:   l.mint,
		Owner:  l.client,
		Amount: flagClientTokens,
		State:  sealevel.TokenAccountStateInitialized,
	}
	clientTokenData, err := marshalTokenAccount(&clientToken)
	if err != nil {
		return nil, err
	}

	txAccts := []accounts.Account{
		{Key: sealevel.MarketProgramAddr, Owner: sealevel.NativeLoaderAddr, Executable: true},
		{Key: sealevel.SystemProgramAddr, Owner: sealevel.NativeLoaderAddr, Executable: true},
		{Key: sealevel.TokenProgramAddr, Owner: sealevel.NativeLoaderAddr, Executable: true},
		{Key: l.admin, Lamports: 10_000_000_000, Owner: sealevel.SystemProgramAddr},
		{Key: l.client, Lamports: flagClientLamports, Owner: sealevel.SystemProgramAddr},
		{Key: l.clientTokenKey, Owner: sealevel.TokenProgramAddr, Data: clientTokenData},
		{Key: l.mint, Owner: sealevel.TokenProgramAddr, Data: make([]byte, 82)},
		{Key: l.settingsAddr, Owner: sealevel.SystemProgramAddr},
		{Key: l.reserveAddr, Owner: sealevel.SystemProgramAddr},
		{Key: l.lamportsAddr, Owner: sealevel.SystemProgramAddr},
		{Key: sealevel.SysvarRentAddr, Owner: sealevel.SystemProgramAddr, Data: rentBuf.Bytes()},
	}

	l.txCtx = sealevel.NewTestTransactionCtx(*sealevel.NewTransactionAccounts(txAccts), 5, 1024)

	memAccts := accounts.NewMemAccounts()
	err = memAccts.SetAccount(sealevel.SysvarRentAddr, &accounts.Account{Key: sealevel.SysvarRentAddr, Owner: sealevel.SystemProgramAddr, Data: rentBuf.Bytes()})
	if err != nil {
		return nil, err
	}

	l.execCtx = &sealevel.ExecutionCtx{
		Accounts:           memAccts,
		TransactionContext: l.txCtx,
		ComputeMeter:       cu.NewComputeMeter(100_000_000),
	}

	return l, nil
}

func marshalTokenAccount(tokenAcct *sealevel.TokenAccount) ([]byte, error) {
	buf := new(bytes.Buffer)
	err := tokenAcct.MarshalWithEncoder(bin.NewBinEncoder(buf))
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (l *ledger) run(instr *sealevel.Instruction) error {
	instrAccts := sealevel.InstructionAcctsFromAccountMetas(instr.Accounts, l.txCtx.Accounts)
	return l.execCtx.ProcessInstruction(instr.Data, instrAccts, []uint64{0})
}

func (l *ledger) account(key solana.PublicKey) *accounts.Account {
	idx, err := l.txCtx.IndexOfAccount(key)
	if err != nil {
		klog.Exitf("account %s missing from ledger", key)
	}
	acct, err := l.txCtx.Accounts.GetAccount(idx)
	if err != nil {
		klog.Exitf("account %s missing from ledger", key)
	}
	return acct
}

func (l *ledger) tokenBalance(key solana.PublicKey) uint64 {
	acct := l.account(key)
	var tokenAcct sealevel.TokenAccount
	err := tokenAcct.UnmarshalWithDecoder(bin.NewBinDecoder(acct.Data))
	if err != nil {
		klog.Exitf("account %s holds no token state: %v", key, err)
	}
	return tokenAcct.Amount
}

// stockReserve mints tokens into the reserve directly, standing in for
// the mint authority that lives outside this simulation.
func (l *ledger) stockReserve(amount uint64) error {
	acct := l.account(l.reserveAddr)

	var tokenAcct sealevel.TokenAccount
	err := tokenAcct.UnmarshalWithDecoder(bin.NewBinDecoder(acct.Data))
	if err != nil {
		return err
	}

	tokenAcct.Amount = amount

	data, err := marshalTokenAccount(&tokenAcct)
	if err != nil {
		return err
	}
	acct.SetData(data)
	return nil
}

func (l *ledger) logBalances(stage string) {
	klog.Infof("[%s] client: %d lamports, %d tokens; store: %d lamports, %d tokens",
		stage,
		l.account(l.client).Lamports, l.tokenBalance(l.clientTokenKey),
		l.account(l.lamportsAddr).Lamports, l.tokenBalance(l.reserveAddr))
}

func runSession(cmd *cobra.Command, args []string) {
	l, err := newLedger()
	if err != nil {
		klog.Exitf("failed to build ledger: %v", err)
	}

	initInstr, err := sealevel.NewInitializeStoreInstruction(l.admin, l.mint, flagSellPrice, flagBuyPrice)
	if err != nil {
		klog.Exitf("failed to build InitializeStore: %v", err)
	}
	err = l.run(initInstr)
	if err != nil {
		klog.Exitf("InitializeStore failed: %v (code %d)", err, sealevel.TranslateErrToInstrErrCode(err))
	}
	klog.Infof("store initialized: settings %s, reserve %s, vault %s", l.settingsAddr, l.reserveAddr, l.lamportsAddr)

	err = l.stockReserve(flagReserveTokens)
	if err != nil {
		klog.Exitf("failed to stock reserve: %v", err)
	}
	l.logBalances("start")

	buyInstr, err := sealevel.NewBuyInstruction(l.client, l.clientTokenKey, flagReserveTokens)
	if err != nil {
		klog.Exitf("failed to build Buy: %v", err)
	}
	err = l.run(buyInstr)
	if err != nil {
		klog.Exitf("Buy failed: %v (code %d)", err, sealevel.TranslateErrToInstrErrCode(err))
	}
	l.logBalances("after buy")

	oneMore, err := sealevel.NewBuyInstruction(l.client, l.clientTokenKey, 1)
	if err != nil {
		klog.Exitf("failed to build Buy: %v", err)
	}
	err = l.run(oneMore)
	if err == nil {
		klog.Exitf("buying from an empty reserve unexpectedly succeeded")
	}
	klog.Infof("buying from the empty reserve rejected: %v", err)

	sellInstr, err := sealevel.NewSellInstruction(l.client, l.clientTokenKey, flagReserveTokens)
	if err != nil {
		klog.Exitf("failed to build Sell: %v", err)
	}
	err = l.run(sellInstr)
	if err != nil {
		klog.Exitf("Sell failed: %v (code %d)", err, sealevel.TranslateErrToInstrErrCode(err))
	}
	l.logBalances("after sell")
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
