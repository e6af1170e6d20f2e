package postgres

import (
	"github.com/tinoosan/walletledger/internal/service/category"
	"github.com/tinoosan/walletledger/internal/service/notification"
	"github.com/tinoosan/walletledger/internal/service/transaction"
	"github.com/tinoosan/walletledger/internal/service/wallet"
)

var (
	_ transaction.Store   = (*Store)(nil)
	_ transaction.Repo    = (*Store)(nil)
	_ transaction.Tx      = (*Tx)(nil)
	_ wallet.Repo         = (*Store)(nil)
	_ wallet.Writer       = (*Store)(nil)
	_ category.Repo       = (*Store)(nil)
	_ category.Writer     = (*Store)(nil)
	_ notification.Repo   = (*Store)(nil)
	_ notification.Writer = (*Store)(nil)
)
