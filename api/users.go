package api

import (
	"encoding/json"
	"net/http"

	"go.vocdoni.io/dvote/log"

	"github.com/airpanel/billing-backend/api/apicommon"
	"github.com/airpanel/billing-backend/db"
	"github.com/airpanel/billing-backend/errors"
	"github.com/airpanel/billing-backend/internal"
)

// registerHandler handles the request to register a new user. It requires an
// email and a password of at least 8 characters.
func (a *API) registerHandler(w http.ResponseWriter, r *http.Request) {
	userInfo := &apicommon.UserInfo{}
	if err := json.NewDecoder(r.Body).Decode(userInfo); err != nil {
		errors.ErrMalformedBody.Write(w)
		return
	}
	// check the email is correct format
	if !internal.ValidEmail(userInfo.Email) {
		errors.ErrEmailMalformed.Write(w)
		return
	}
	// check the password is correct format
	if len(userInfo.Password) < 8 {
		errors.ErrPasswordTooShort.Write(w)
		return
	}
	// add the user to the database
	_, err := a.db.SetUser(&db.User{
		Email:    userInfo.Email,
		Name:     userInfo.Name,
		Password: internal.HexHashPassword(passwordSalt, userInfo.Password),
	})
	if err != nil {
		if err == db.ErrInvalidData {
			errors.ErrDuplicateConflict.With("email already registered").Write(w)
			return
		}
		log.Warnw("could not create user", "error", err)
		errors.ErrGenericInternalServerError.Write(w)
		return
	}
	apicommon.HTTPWriteOK(w)
}

// userInfoHandler handles the request to get the information of the current
// authenticated user, balance included.
func (a *API) userInfoHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := apicommon.UserFromContext(r.Context())
	if !ok {
		errors.ErrUnauthorized.Write(w)
		return
	}
	apicommon.HTTPWriteJSON(w, apicommon.UserProfileFromUser(user))
}

// userOrdersHandler handles the request to list the recharge orders of the
// current authenticated user.
func (a *API) userOrdersHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := apicommon.UserFromContext(r.Context())
	if !ok {
		errors.ErrUnauthorized.Write(w)
		return
	}
	orders, err := a.db.OrdersByUser(user.ID)
	if err != nil {
		errors.ErrGenericInternalServerError.Write(w)
		return
	}
	infos := make([]*apicommon.OrderInfo, 0, len(orders))
	for i := range orders {
		infos = append(infos, apicommon.OrderInfoFromOrder(&orders[i]))
	}
	apicommon.HTTPWriteJSON(w, infos)
}
