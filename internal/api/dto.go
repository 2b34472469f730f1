package api

import (
	"github.com/google/uuid"

	"github.com/fastprodman/moneyserver/internal/repos/accounts"
	"github.com/fastprodman/moneyserver/internal/repos/transactions"
	"github.com/fastprodman/moneyserver/internal/repos/userinfo"
)

type errorResponse struct {
	Error string `json:"error"`
}

type addAccountRequest struct {
	UserID  string `json:"userId" validate:"required,max=255"`
	Balance int64  `json:"balance" validate:"gte=0"`
	Status  int    `json:"status"`
	Type    int    `json:"type"`
}

type accountResponse struct {
	UserID  string `json:"userId"`
	Balance int64  `json:"balance"`
	Status  int    `json:"status"`
	Type    int    `json:"type"`
}

func toAccountResponse(acc accounts.Account) accountResponse {
	return accountResponse{UserID: acc.UserID, Balance: acc.Balance, Status: acc.Status, Type: acc.Type}
}

type balanceResponse struct {
	UserID  string `json:"userId"`
	Balance int64  `json:"balance"`
}

type addTransactionRequest struct {
	TransactionID string `json:"transactionId" validate:"omitempty,uuid"`
	Sender        string `json:"sender" validate:"required,max=255"`
	Receiver      string `json:"receiver" validate:"required,max=255,nefield=Sender"`
	Amount        int64  `json:"amount" validate:"gte=0"`
	Type          int    `json:"type"`
	Time          int64  `json:"time" validate:"gte=0"`
	ObjectUUID    string `json:"objectUuid" validate:"omitempty,uuid"`
	ObjectName    string `json:"objectName"`
	RegionHandle  uint64 `json:"regionHandle"`
	RegionUUID    string `json:"regionUuid" validate:"omitempty,uuid"`
	SecureCode    string `json:"secureCode"`
	CommonName    string `json:"commonName"`
	Description   string `json:"description"`
}

// record converts the request. Fields were validated, so parse errors cannot
// occur; an empty UUID stays nil.
func (req addTransactionRequest) record() transactions.Record {
	return transactions.Record{
		ID:           parseOptionalUUID(req.TransactionID),
		Sender:       req.Sender,
		Receiver:     req.Receiver,
		Amount:       req.Amount,
		Type:         req.Type,
		Time:         req.Time,
		ObjectUUID:   parseOptionalUUID(req.ObjectUUID),
		ObjectName:   req.ObjectName,
		RegionHandle: req.RegionHandle,
		RegionUUID:   parseOptionalUUID(req.RegionUUID),
		SecureCode:   req.SecureCode,
		CommonName:   req.CommonName,
		Description:  req.Description,
	}
}

func parseOptionalUUID(s string) uuid.UUID {
	if s == "" {
		return uuid.Nil
	}

	return uuid.MustParse(s)
}

type transactionResponse struct {
	TransactionID   string `json:"transactionId"`
	Sender          string `json:"sender"`
	Receiver        string `json:"receiver"`
	Amount          int64  `json:"amount"`
	SenderBalance   int64  `json:"senderBalance"`
	ReceiverBalance int64  `json:"receiverBalance"`
	Type            int    `json:"type"`
	Time            int64  `json:"time"`
	Status          string `json:"status"`
	ObjectUUID      string `json:"objectUuid"`
	ObjectName      string `json:"objectName"`
	RegionHandle    uint64 `json:"regionHandle"`
	RegionUUID      string `json:"regionUuid"`
	CommonName      string `json:"commonName"`
	Description     string `json:"description"`
	Debited         bool   `json:"debited"`
	CodeUsed        bool   `json:"codeUsed"`
}

func toTransactionResponse(rec transactions.Record) transactionResponse {
	return transactionResponse{
		TransactionID:   rec.ID.String(),
		Sender:          rec.Sender,
		Receiver:        rec.Receiver,
		Amount:          rec.Amount,
		SenderBalance:   rec.SenderBalance,
		ReceiverBalance: rec.ReceiverBalance,
		Type:            rec.Type,
		Time:            rec.Time,
		Status:          string(rec.Status),
		ObjectUUID:      rec.ObjectUUID.String(),
		ObjectName:      rec.ObjectName,
		RegionHandle:    rec.RegionHandle,
		RegionUUID:      rec.RegionUUID.String(),
		CommonName:      rec.CommonName,
		Description:     rec.Description,
		Debited:         rec.Debited,
		CodeUsed:        rec.CodeUsed,
	}
}

// createdTransactionResponse is only sent to the creator; reads never expose
// the secure code.
type createdTransactionResponse struct {
	transactionResponse
	SecureCode string `json:"secureCode"`
}

type transactionListResponse struct {
	Transactions []transactionResponse `json:"transactions"`
}

type moneyRequest struct {
	UserID string `json:"userId" validate:"required"`
	Amount int64  `json:"amount" validate:"gte=0"`
}

type secureCodeRequest struct {
	SecureCode string `json:"secureCode" validate:"required"`
}

type validateResponse struct {
	Valid bool `json:"valid"`
}

type statusRequest struct {
	Status      string `json:"status" validate:"required,oneof=PENDING SUCCESS FAILED ERROR"`
	Description string `json:"description" validate:"max=1024"`
}

type expireRequest struct {
	DeadTime int64 `json:"deadTime" validate:"gte=0"`
}

type expireResponse struct {
	Expired int64 `json:"expired"`
}

type countResponse struct {
	Count int64 `json:"count"`
}

type userInfoRequest struct {
	SimIP        string `json:"simIp" validate:"omitempty,ip"`
	AvatarName   string `json:"avatarName" validate:"max=255"`
	PasswordHash string `json:"passwordHash"`
	AvatarType   int    `json:"avatarType"`
	AvatarClass  int    `json:"avatarClass"`
	ServerURL    string `json:"serverUrl" validate:"omitempty,url"`
}

func (req userInfoRequest) info(userID string) userinfo.Info {
	return userinfo.Info{
		UserID:       userID,
		SimIP:        req.SimIP,
		AvatarName:   req.AvatarName,
		PasswordHash: req.PasswordHash,
		AvatarType:   req.AvatarType,
		AvatarClass:  req.AvatarClass,
		ServerURL:    req.ServerURL,
	}
}

// userInfoResponse leaves out the password hash.
type userInfoResponse struct {
	UserID      string `json:"userId"`
	SimIP       string `json:"simIp"`
	AvatarName  string `json:"avatarName"`
	AvatarType  int    `json:"avatarType"`
	AvatarClass int    `json:"avatarClass"`
	ServerURL   string `json:"serverUrl"`
}

func toUserInfoResponse(info userinfo.Info) userInfoResponse {
	return userInfoResponse{
		UserID:      info.UserID,
		SimIP:       info.SimIP,
		AvatarName:  info.AvatarName,
		AvatarType:  info.AvatarType,
		AvatarClass: info.AvatarClass,
		ServerURL:   info.ServerURL,
	}
}
